// Package lockfile guards one prefix against concurrent pspman runs. The lock
// is an flock on a human-readable file naming the holder; a file left behind
// by a crashed run is reported as stale until it is removed with Unlock.
package lockfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"

	"pspman/internal/services"
)

// Lock is a held run lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// acquireAttempts bounds retries when the file is replaced while locking.
const acquireAttempts = 3

// Acquire takes the lock at path and writes holder into it. The previous holder
// is read only once the lock is held, so a run that is releasing concurrently
// is never mistaken for a crashed one.
func Acquire(path, holder string) (*Lock, error) {
	for attempt := 0; attempt < acquireAttempts; attempt++ {
		fl := flock.New(path)
		ok, err := fl.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrLockContention, "lock", "acquire", path, err)
		}
		if !ok {
			return nil, &ContentionError{Path: path, Holder: readHolder(path)}
		}
		if !lockedCurrent(fl, path) {
			// The releasing run unlinked the file we locked.
			_ = fl.Unlock()
			continue
		}
		if previous := readHolder(path); previous != "" {
			_ = fl.Unlock()
			return nil, &StaleError{Path: path, Holder: previous}
		}
		if err := os.WriteFile(path, []byte(holder+"\n"), 0o644); err != nil {
			_ = fl.Unlock()
			_ = os.Remove(path)
			return nil, services.Wrap(services.ErrLockContention, "lock", "write holder", path, err)
		}
		return &Lock{path: path, lock: fl}, nil
	}
	return nil, &ContentionError{Path: path, Holder: readHolder(path)}
}

// lockedCurrent reports whether path still names the file fl has locked.
func lockedCurrent(fl *flock.Flock, path string) bool {
	held, err := fl.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, current)
}

// Path is the lock file location.
func (l *Lock) Path() string { return l.path }

// Release clears the holder text, removes the lock file and drops the flock,
// in that order. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	var errs []error
	if err := os.Truncate(l.path, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	if err := l.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	l.lock = nil
	return errors.Join(errs...)
}

// Unlock removes a lock file left by a run that is no longer active and returns
// the holder it named. An actively held lock is refused.
func Unlock(path string) (string, error) {
	holder := readHolder(path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", services.Wrap(services.ErrNotFound, "unlock", "", fmt.Sprintf("lock file %s not found", path), nil)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return holder, services.Wrap(services.ErrLockContention, "unlock", "check", path, err)
	}
	if !ok {
		return holder, &ContentionError{Path: path, Holder: holder}
	}
	defer func() { _ = fl.Unlock() }()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return holder, services.Wrap(services.ErrPermission, "unlock", "remove", path, err)
	}
	return holder, nil
}

// Holder is the text a run writes into the lock.
func Holder(pid int, runID string) string {
	return fmt.Sprintf("pid:%d run:%s", pid, runID)
}

func readHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(data))
}
