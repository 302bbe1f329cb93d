package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared across the application. Callers match them with errors.Is.
var (
	// ErrFormat is returned when a container or its decrypted content is not
	// in the expected shape: a blob too short to hold an IV and a tag, bytes
	// that are not UTF-8 JSON, or cards that violate their invariants.
	ErrFormat = errors.New("invalid format")

	// ErrAuthentication is returned when the GCM authentication tag does not
	// verify. A wrong password and a corrupted container are indistinguishable.
	ErrAuthentication = errors.New("authentication failed")

	// ErrInput is returned when a required input, such as the producer
	// password, was not supplied.
	ErrInput = errors.New("missing input")

	// ErrValidation is returned when a domain entity fails validation.
	// This is usually wrapped in a FormatError naming the field.
	ErrValidation = errors.New("validation failed")
)

// FormatError describes why content was rejected. Field names the offending
// JSON field (for example "cards[2].correct") and is empty when the document
// as a whole is unusable.
type FormatError struct {
	Field  string
	Reason string
	Err    error
}

// NewFormatError returns a FormatError for the given field.
func NewFormatError(field, reason string, err error) *FormatError {
	return &FormatError{Field: field, Reason: reason, Err: err}
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	msg := e.Reason
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrFormat, msg, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrFormat, msg)
}

// Unwrap exposes both ErrFormat and the underlying cause to errors.Is/As.
func (e *FormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormat}
	}
	return []error{ErrFormat, e.Err}
}

// Kind returns a short, log-friendly name for the error class of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrInput):
		return "input"
	default:
		return "internal"
	}
}
