package errs

import (
	"errors"
	"fmt"
)

var (
	InternalError          = errors.New("internal error")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrJobNotFound         = errors.New("job not found")
	ErrJobExists           = errors.New("job already exists")
	ErrInvalidTransition   = errors.New("invalid job state transition")
	ErrQueueFull           = errors.New("execution queue is full")
	ErrShuttingDown        = errors.New("engine is shutting down")
	ErrUnauthorized        = errors.New("unauthorized")
)

// ValidationError names the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
