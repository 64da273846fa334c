package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// MakeWorkTree creates <cloneDir>/<dir> with a .git directory and the given
// marker files, and returns its path. It looks like a clone to discovery.
func MakeWorkTree(t testing.TB, cloneDir, dir string, markers ...string) string {
	t.Helper()
	root := filepath.Join(cloneDir, dir)
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir work tree %s: %v", root, err)
	}
	for _, marker := range markers {
		WriteFile(t, filepath.Join(root, marker), "")
	}
	return root
}
