package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Job queue errors
	ErrTransport         = fmt.Errorf("job queue request failed")
	ErrNotFound          = fmt.Errorf("job not found")
	ErrProtocolViolation = fmt.Errorf("job queue protocol violation")
	ErrCancelled         = fmt.Errorf("batch run cancelled")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// TransportError describes a failed call to the job queue backend.
//
// It always matches [ErrTransport]; a 404 response also matches [ErrNotFound].
type TransportError struct {
	Op         string // Operation name, e.g. "get status"
	StatusCode int    // HTTP status, 0 when no response was received
	Message    string // Backend-provided error text, if any
	Err        error  // Underlying cause, if any
}

// Error implements error.
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrTransport, e.Op)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the sentinel errors and the cause to [errors.Is] and [errors.As].
func (e *TransportError) Unwrap() []error {
	errs := []error{ErrTransport}
	if e.StatusCode == http.StatusNotFound {
		errs = append(errs, ErrNotFound)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsNotFound reports whether err is a transport error for an unknown job id.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
