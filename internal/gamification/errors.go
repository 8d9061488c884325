package gamification

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the referenced user does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique value such as an email is taken.
var ErrConflict = errors.New("already exists")

// ValidationError rejects an input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
