package analysis

import (
	"errors"
	"fmt"
)

// Common analysis errors. Every failure returned by a client matches ErrAnalysis and
// exactly one of the stage errors below.
var (
	// ErrAnalysis is the umbrella for every analysis failure. Isolated per item.
	ErrAnalysis = errors.New("content analysis failed")

	// ErrRequest is returned when the service cannot be reached or answers non-2xx.
	ErrRequest = errors.New("analysis request failed")

	// ErrMalformedEnvelope is returned when the response envelope lacks the
	// candidate/part structure that carries the answer.
	ErrMalformedEnvelope = errors.New("malformed analysis envelope")

	// ErrMalformedPayload is returned when the embedded answer is not a JSON object
	// of the expected shape.
	ErrMalformedPayload = errors.New("malformed analysis payload")
)

// AnalysisError wraps analysis failures with the stage that produced them.
type AnalysisError struct {
	// Op is the operation that failed (e.g., "Analyze", "AnalyzeInline").
	Op string

	// Kind is one of ErrRequest, ErrMalformedEnvelope or ErrMalformedPayload.
	Kind error

	// Err is the underlying error.
	Err error

	// StatusCode is the HTTP status when the service answered, 0 otherwise.
	StatusCode int

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("analysis: %s failed: %v", e.Op, e.Kind)
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
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Is matches ErrAnalysis, the error's kind, and its cause.
func (e *AnalysisError) Is(target error) bool {
	if target == ErrAnalysis || target == e.Kind {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func newAnalysisError(op string, kind, err error, details string) *AnalysisError {
	return &AnalysisError{Op: op, Kind: kind, Err: err, Details: details}
}
