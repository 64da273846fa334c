package lockfile

import (
	"fmt"

	"pspman/internal/services"
)

// ContentionError reports a lock held by a live process.
type ContentionError struct {
	Path   string
	Holder string
}

func (e *ContentionError) Error() string {
	if e.Holder == "" {
		return fmt.Sprintf("%s is locked by another pspman run", e.Path)
	}
	return fmt.Sprintf("%s is locked by another pspman run (%s)", e.Path, e.Holder)
}

func (e *ContentionError) Is(target error) bool { return target == services.ErrLockContention }

// StaleError reports a lock file whose holder is gone. Run "pspman unlock" to clear it.
type StaleError struct {
	Path   string
	Holder string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("stale lock %s left by %s; run \"pspman unlock\" after checking no other run is active", e.Path, e.Holder)
}

func (e *StaleError) Is(target error) bool { return target == services.ErrLockContention }
