package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a looked-up object does not exist. Absence is
// an expected condition (first sync run), not a failure.
var ErrNotFound = errors.New("storage: object not found")

// TransientError marks a failure worth retrying: timeouts, connection
// resets, throttling, server-side 5xx. Storage clients retry these
// internally; one surfacing means the retry budget is exhausted.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("storage %s: transient: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure retrying cannot fix: bad credentials,
// missing bucket, rejected request.
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("storage %s: permanent: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether an error is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
