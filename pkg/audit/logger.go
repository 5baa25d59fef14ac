package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger is the audit surface the pipeline writes to.
type Logger interface {
	Log(ctx context.Context, entry *Entry) error
	LogSuccess(ctx context.Context, operation Operation) *Entry
	LogFailure(ctx context.Context, operation Operation, err error) *Entry
	Flush() error
	Close() error
}

// AuditLogger writes entries synchronously to its appenders. A sync run
// produces a handful of entries, so buffering buys nothing and losing
// the tail of the trail on a crash would cost a lot.
type AuditLogger struct {
	mu        sync.RWMutex
	appenders []Appender
	config    LoggerConfig
}

// LoggerConfig configures an AuditLogger.
type LoggerConfig struct {
	// DefaultPipeline stamps entries that carry no pipeline name.
	DefaultPipeline string

	// OnError is called when an appender fails. The entry is still
	// offered to the remaining appenders.
	OnError func(error)
}

// NewLogger creates an AuditLogger over the given appenders.
func NewLogger(config LoggerConfig, appenders ...Appender) *AuditLogger {
	return &AuditLogger{
		appenders: appenders,
		config:    config,
	}
}

// Log writes one entry to every appender.
func (l *AuditLogger) Log(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = generateID()
	}
	if entry.Pipeline == "" && l.config.DefaultPipeline != "" {
		entry.Pipeline = l.config.DefaultPipeline
	}

	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstError error
	for _, appender := range appenders {
		if err := appender.Append(ctx, entry); err != nil {
			if firstError == nil {
				firstError = err
			}
			l.handleError(fmt.Errorf("appender failed: %w", err))
		}
	}
	return firstError
}

// LogSuccess records a successful operation and returns the entry for
// further decoration.
func (l *AuditLogger) LogSuccess(ctx context.Context, operation Operation) *Entry {
	entry := NewEntry(operation, StatusSuccess)
	if err := l.Log(ctx, entry); err != nil {
		l.handleError(err)
	}
	return entry
}

// LogFailure records a failed operation.
func (l *AuditLogger) LogFailure(ctx context.Context, operation Operation, err error) *Entry {
	entry := NewEntry(operation, StatusFailure).WithError(err)
	if logErr := l.Log(ctx, entry); logErr != nil {
		l.handleError(logErr)
	}
	return entry
}

// Flush flushes appenders that support it.
func (l *AuditLogger) Flush() error {
	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstError error
	for _, appender := range appenders {
		if flusher, ok := appender.(interface{ Flush() error }); ok {
			if err := flusher.Flush(); err != nil && firstError == nil {
				firstError = err
			}
		}
	}
	return firstError
}

// Close flushes and closes all appenders.
func (l *AuditLogger) Close() error {
	l.Flush()

	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstError error
	for _, appender := range appenders {
		if err := appender.Close(); err != nil && firstError == nil {
			firstError = err
		}
	}
	return firstError
}

// AddAppender registers another appender.
func (l *AuditLogger) AddAppender(appender Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = append(l.appenders, appender)
}

func (l *AuditLogger) handleError(err error) {
	if l.config.OnError != nil {
		l.config.OnError(err)
	}
}

// NullLogger discards everything. Used when audit is disabled.
type NullLogger struct{}

func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (nl *NullLogger) Log(ctx context.Context, entry *Entry) error {
	return nil
}

func (nl *NullLogger) LogSuccess(ctx context.Context, operation Operation) *Entry {
	return NewEntry(operation, StatusSuccess)
}

func (nl *NullLogger) LogFailure(ctx context.Context, operation Operation, err error) *Entry {
	return NewEntry(operation, StatusFailure)
}

func (nl *NullLogger) Flush() error {
	return nil
}

func (nl *NullLogger) Close() error {
	return nil
}
