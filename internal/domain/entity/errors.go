package entity

import (
	"errors"
	"fmt"
)

// ErrInvalid matches every ValidationError via errors.Is.
var ErrInvalid = errors.New("invalid entity")

// ValidationError reports the first field of a Notice or Source that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is lets callers test errors.Is(err, ErrInvalid) without unwrapping to the concrete type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}
