package audit

import "context"

// Appender persists audit entries somewhere.
type Appender interface {
	Append(ctx context.Context, entry *Entry) error
	Close() error
}

// MultiAppender fans one entry out to several appenders. A failing
// appender does not stop the others; the first error is returned.
type MultiAppender struct {
	appenders []Appender
}

// NewMultiAppender creates a MultiAppender.
func NewMultiAppender(appenders ...Appender) *MultiAppender {
	return &MultiAppender{appenders: appenders}
}

// Append writes the entry to every appender.
func (ma *MultiAppender) Append(ctx context.Context, entry *Entry) error {
	var firstErr error
	for _, appender := range ma.appenders {
		if err := appender.Append(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every appender.
func (ma *MultiAppender) Close() error {
	var firstErr error
	for _, appender := range ma.appenders {
		if err := appender.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Add registers another appender.
func (ma *MultiAppender) Add(appender Appender) {
	ma.appenders = append(ma.appenders, appender)
}

// NullAppender swallows everything. Used in tests and when audit is
// disabled.
type NullAppender struct{}

func NewNullAppender() *NullAppender {
	return &NullAppender{}
}

func (na *NullAppender) Append(ctx context.Context, entry *Entry) error {
	return nil
}

func (na *NullAppender) Close() error {
	return nil
}
