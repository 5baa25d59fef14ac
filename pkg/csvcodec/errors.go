package csvcodec

import "fmt"

// FormatError reports input that cannot be understood as a delimited
// export: invalid encoding, an unreadable header, or a malformed record.
// It is always detected before anything is written anywhere.
type FormatError struct {
	Op     string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("csv %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("csv %s: %s", e.Op, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
