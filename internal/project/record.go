package project

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Record is the in-memory state of one tracked project.
type Record struct {
	Name string
	URL  string
	// Dir is the working tree directory under the clone root. Empty means Name.
	Dir      string
	Branch   string
	PullOnly bool
	Tag      Tag
	// LastUpdated is zero until a pull or install has been verified.
	LastUpdated time.Time
}

// NewRecord builds a record for url, deriving the name unless one is supplied.
func NewRecord(url, name string) (*Record, error) {
	url = strings.TrimSpace(url)
	name = strings.TrimSpace(name)
	if name == "" {
		derived, err := DeriveName(url)
		if err != nil {
			return nil, err
		}
		name = derived
	}
	if strings.ContainsRune(name, filepath.Separator) || name == "." || name == ".." {
		return nil, &SourceLocatorError{Locator: name, Reason: "name must be a single path component"}
	}
	return &Record{Name: name, URL: url}, nil
}

// FromRequest builds a record for an install request.
func FromRequest(req Request) (*Record, error) {
	rec, err := NewRecord(req.URL, "")
	if err != nil {
		return nil, err
	}
	rec.Branch = req.Branch
	rec.PullOnly = req.PullOnly
	return rec, nil
}

// DirName is the working tree directory name under the clone root.
func (r *Record) DirName() string {
	if r.Dir != "" {
		return r.Dir
	}
	return r.Name
}

// Path resolves the working tree under cloneDir.
func (r *Record) Path(cloneDir string) string {
	return filepath.Join(cloneDir, r.DirName())
}

// TouchUpdated stamps the last verified update time.
func (r *Record) TouchUpdated(now time.Time) {
	r.LastUpdated = now.UTC().Truncate(time.Second)
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	cp := *r
	return &cp
}

// FileCollisionSuffix is appended to the directory name when a regular file
// already occupies <clone_dir>/<name>.
const FileCollisionSuffix = ".d"

// ResolveDir picks the working tree directory name for a new project.
func ResolveDir(cloneDir, name string) string {
	info, err := os.Lstat(filepath.Join(cloneDir, name))
	if err == nil && !info.IsDir() {
		return name + FileCollisionSuffix
	}
	return name
}
