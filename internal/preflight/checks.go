package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CheckRoot refuses euid 0 unless forceRisk is set.
func CheckRoot(euid int, forceRisk bool) Result {
	const name = "Effective user"
	switch {
	case euid != 0:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("uid %d", euid)}
	case forceRisk:
		return Result{Name: name, Passed: true, Detail: "root (forced)"}
	default:
		return Result{Name: name, Detail: "refusing to run as root; pass --force-risk to override"}
	}
}

// CheckDirectoryAccess verifies read, write and search permission on path. A
// path that does not exist yet is checked through its nearest existing
// ancestor, which must allow the directories to be created.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	target := path
	for {
		info, err := os.Stat(target)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", target)}
			}
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", target, err)}
		}
		parent := filepath.Dir(target)
		if parent == target {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		target = parent
	}
	if err := unix.Access(target, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", target, err)}
	}
	if target != path {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (creatable under %s)", path, target)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
