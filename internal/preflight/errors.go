package preflight

import (
	"fmt"

	"pspman/internal/services"
)

// PermissionError reports a failed root or directory access check.
type PermissionError struct {
	Check  string
	Reason string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Check, e.Reason)
}

func (e *PermissionError) Is(target error) bool { return target == services.ErrPermission }
