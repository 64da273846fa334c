package project

import (
	"os"
	"path/filepath"
)

// backendMarkers is evaluated in order; the first family with any marker wins.
var backendMarkers = []struct {
	backend Backend
	files   []string
}{
	{BackendMake, []string{"Makefile", "configure"}},
	{BackendPip, []string{"setup.py", "setup.cfg"}},
	{BackendMeson, []string{"meson.build"}},
	{BackendGo, []string{"main.go"}},
}

// ClassifyBackend inspects workdir for build markers. A directory with no
// recognised marker yields BackendNone, which installs as a no-op.
func ClassifyBackend(workdir string) Backend {
	for _, family := range backendMarkers {
		for _, marker := range family.files {
			if exists(filepath.Join(workdir, marker)) {
				return family.backend
			}
		}
	}
	return BackendNone
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
