package validation

import (
	"errors"
	"fmt"
)

// ErrValidationFailed is matched by every *ValidationError via errors.Is.
var ErrValidationFailed = errors.New("validation failed")

// ValidationError reports a rejected input value. It is client-correctable and
// must never be retried automatically.
type ValidationError struct {
	Field   string // Name of the offending field (dotted path for nested data)
	Message string // Human-readable description of the rule that failed
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidationFailed
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// NewError creates a ValidationError for field with a formatted message
func NewError(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// FieldOf returns the field name carried by a validation error, or "" if err is
// not a validation error.
func FieldOf(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Field
	}
	return ""
}
