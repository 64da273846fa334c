package actions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"pspman/internal/project"
	"pspman/internal/queue"
)

// Delete removes a project's working tree. Installed files are left behind.
// The tree is checked for removability first so that a permission problem
// leaves it intact instead of half deleted.
func (e *Executor) Delete(ctx context.Context, rec *project.Record) queue.Result {
	tag := rec.Tag
	dir := rec.Path(e.cloneDir)

	err := checkRemovable(dir)
	if err == nil {
		err = e.remove(dir)
	}
	if err != nil {
		tag.MarkFailed(project.StepDelete, err.Error())
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("FAILED deleting %s: %v", rec.Name, err), Tag: tag}
	}

	tag.ClearPending(project.PendingDelete)
	tag.MarkSucceeded(project.StepDelete, true)
	msg := fmt.Sprintf("Deleted %s; installed files are left in place. It may be added again using: pspman -i %s", rec.Name, rec.URL)
	return queue.Result{Name: rec.Name, Message: msg, Tag: tag, Success: true}
}

// checkRemovable verifies write and search permission on every directory that
// would need an entry unlinked, including the parent of root.
func checkRemovable(root string) error {
	if _, err := os.Lstat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := unix.Access(filepath.Dir(root), unix.W_OK|unix.X_OK); err != nil {
		return &fs.PathError{Op: "access", Path: filepath.Dir(root), Err: err}
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			return &fs.PathError{Op: "access", Path: path, Err: err}
		}
		return nil
	})
}
