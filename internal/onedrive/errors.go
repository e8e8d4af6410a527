package onedrive

import (
	"errors"
	"fmt"
)

// Common drive errors. Each failure returned by Client matches exactly one of the
// first three so callers can decide whether it is fatal.
var (
	// ErrList is returned when a listing page cannot be obtained. Fatal to a scan run.
	ErrList = errors.New("remote listing failed")

	// ErrFetch is returned when a file's content cannot be downloaded. Isolated per item.
	ErrFetch = errors.New("remote download failed")

	// ErrUpload is returned when the ledger snapshot cannot be written to the drive.
	ErrUpload = errors.New("remote upload failed")

	// ErrCursorLoop is returned when the service hands back the cursor it was given.
	ErrCursorLoop = errors.New("continuation cursor did not advance")
)

// DriveError wraps drive API failures with the operation and HTTP status.
type DriveError struct {
	// Op is the operation that failed (e.g., "List", "Fetch", "Upload").
	Op string

	// Kind is one of ErrList, ErrFetch or ErrUpload.
	Kind error

	// Err is the underlying error.
	Err error

	// StatusCode is the HTTP status when the service answered, 0 otherwise.
	StatusCode int

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *DriveError) Error() string {
	msg := fmt.Sprintf("onedrive: %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DriveError) Unwrap() error {
	return e.Err
}

// Is matches the error's kind as well as its cause.
func (e *DriveError) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func newDriveError(op string, kind, err error, status int, details string) *DriveError {
	return &DriveError{
		Op:         op,
		Kind:       kind,
		Err:        err,
		StatusCode: status,
		Details:    details,
	}
}
