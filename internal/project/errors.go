package project

import (
	"fmt"

	"pspman/internal/services"
)

// SourceLocatorError reports a URL or name that cannot identify a project.
type SourceLocatorError struct {
	Locator string
	Reason  string
}

func (e *SourceLocatorError) Error() string {
	if e.Locator == "" {
		return "invalid source locator: " + e.Reason
	}
	return fmt.Sprintf("invalid source locator %q: %s", e.Locator, e.Reason)
}

func (e *SourceLocatorError) Is(target error) bool { return target == services.ErrValidation }

// TagConflictError reports an attempt to claim a second install backend.
type TagConflictError struct {
	Existing  Backend
	Requested Backend
}

func (e *TagConflictError) Error() string {
	return fmt.Sprintf("install backend already set to %s, cannot switch to %s", e.Existing, e.Requested)
}

func (e *TagConflictError) Is(target error) bool { return target == services.ErrValidation }
