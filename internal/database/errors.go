package database

import (
	"fmt"

	"pspman/internal/services"
)

// DecodeError reports a database entry that could not be turned into a record.
type DecodeError struct {
	Name   string
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("decode project database %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("decode project %q field %s: %s", e.Name, e.Field, e.Reason)
}

func (e *DecodeError) Is(target error) bool { return target == services.ErrValidation }
