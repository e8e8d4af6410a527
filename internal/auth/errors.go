package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth marks every failure to obtain an access token. It is fatal to a scan run.
	ErrAuth = errors.New("access token acquisition failed")

	// ErrMissingToken is returned when the token endpoint answers without access_token.
	ErrMissingToken = errors.New("token response has no access_token")
)

// AuthError wraps token acquisition failures with the endpoint that was called.
type AuthError struct {
	// Op is the operation that failed (e.g., "Acquire").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("auth: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("auth: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is lets every AuthError match ErrAuth in addition to its cause.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth || errors.Is(e.Err, target)
}

// NewAuthError creates a new AuthError.
func NewAuthError(op string, err error, details string) *AuthError {
	return &AuthError{Op: op, Err: err, Details: details}
}
