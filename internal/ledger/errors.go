package ledger

import (
	"errors"
	"fmt"
)

// Common ledger errors
var (
	// ErrInvalidRecord is returned when a record has no suggested name.
	ErrInvalidRecord = errors.New("record has no suggested name")

	// ErrDuplicate is returned when a record's suggested name is already in the ledger.
	ErrDuplicate = errors.New("suggested name already recorded")

	// ErrWrite is returned when the backing file cannot be appended to.
	ErrWrite = errors.New("ledger write failed")

	// ErrUpload is returned when at least one mirror rejected the snapshot.
	// Local rows are kept.
	ErrUpload = errors.New("ledger upload failed")
)

// LedgerError wraps ledger failures with the operation and the record or mirror involved.
type LedgerError struct {
	// Op is the operation that failed (e.g., "Append", "SyncRemote").
	Op string

	// Kind is one of the sentinel errors above.
	Kind error

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	msg := fmt.Sprintf("ledger: %s failed: %v", e.Op, e.Kind)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Is matches the error's kind as well as its cause.
func (e *LedgerError) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func newLedgerError(op string, kind, err error, details string) *LedgerError {
	return &LedgerError{Op: op, Kind: kind, Err: err, Details: details}
}
