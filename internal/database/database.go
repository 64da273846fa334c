package database

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"pspman/internal/fileutil"
	"pspman/internal/project"
	"pspman/internal/services"
)

// BackupSuffix is appended to the database path for the rotated copy.
const BackupSuffix = ".bak"

// entry is the on-disk shape of one record.
type entry struct {
	URL         string `yaml:"url"`
	Tag         int    `yaml:"tag"`
	LastUpdated string `yaml:"last_updated,omitempty"`
	PullOnly    bool   `yaml:"pull_only,omitempty"`
	Branch      string `yaml:"branch,omitempty"`
	Dir         string `yaml:"dir,omitempty"`
}

// Database is the in-memory view of the project file.
type Database struct {
	path    string
	records map[string]*project.Record
}

// New returns an empty database that will be saved to path.
func New(path string) *Database {
	return &Database{path: path, records: make(map[string]*project.Record)}
}

// Load reads path. A missing file yields an empty database.
func Load(path string) (*Database, error) {
	db := New(path)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return db, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "database", "read", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return db, nil
	}

	var raw map[string]entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Field: "document", Reason: err.Error()}
	}
	for name, e := range raw {
		rec, err := decodeEntry(name, e)
		if err != nil {
			return nil, err
		}
		db.records[name] = rec
	}
	return db, nil
}

func decodeEntry(name string, e entry) (*project.Record, error) {
	rec, err := project.NewRecord(e.URL, name)
	if err != nil {
		return nil, &DecodeError{Name: name, Field: "name", Reason: err.Error()}
	}
	tag, err := project.DecodeTag(e.Tag)
	if err != nil {
		return nil, &DecodeError{Name: name, Field: "tag", Reason: err.Error()}
	}
	rec.Tag = tag
	if e.LastUpdated != "" {
		ts, err := time.Parse(time.RFC3339, e.LastUpdated)
		if err != nil {
			return nil, &DecodeError{Name: name, Field: "last_updated", Reason: err.Error()}
		}
		rec.LastUpdated = ts.UTC()
	}
	rec.PullOnly = e.PullOnly
	rec.Branch = e.Branch
	rec.Dir = e.Dir
	return rec, nil
}

func encodeEntry(rec *project.Record) entry {
	e := entry{
		URL:      rec.URL,
		Tag:      rec.Tag.Encode(),
		PullOnly: rec.PullOnly,
		Branch:   rec.Branch,
	}
	if rec.Dir != "" && rec.Dir != rec.Name {
		e.Dir = rec.Dir
	}
	if !rec.LastUpdated.IsZero() {
		e.LastUpdated = rec.LastUpdated.UTC().Format(time.RFC3339)
	}
	return e
}

// Path is the live database file.
func (d *Database) Path() string { return d.path }

// BackupPath is the rotated copy of the previous save.
func (d *Database) BackupPath() string { return d.path + BackupSuffix }

// Len reports the number of tracked projects.
func (d *Database) Len() int { return len(d.records) }

// Get returns a copy of the named record.
func (d *Database) Get(name string) (*project.Record, bool) {
	rec, ok := d.records[name]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Put stores a copy of rec, replacing any record with the same name.
func (d *Database) Put(rec *project.Record) {
	if rec == nil {
		return
	}
	d.records[rec.Name] = rec.Clone()
}

// Remove drops the named record.
func (d *Database) Remove(name string) {
	delete(d.records, name)
}

// Names returns tracked names in sorted order.
func (d *Database) Names() []string {
	names := make([]string, 0, len(d.records))
	for name := range d.records {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Records returns copies of every record, sorted by name.
func (d *Database) Records() []*project.Record {
	names := d.Names()
	out := make([]*project.Record, 0, len(names))
	for _, name := range names {
		out = append(out, d.records[name].Clone())
	}
	return out
}

// Save writes the database. The previous file becomes the backup only once the
// new content is fully written next to it.
func (d *Database) Save() error {
	raw := make(map[string]entry, len(d.records))
	for name, rec := range d.records {
		raw[name] = encodeEntry(rec)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return services.Wrap(services.ErrConfiguration, "database", "encode", d.path, err)
	}
	if err := enc.Close(); err != nil {
		return services.Wrap(services.ErrConfiguration, "database", "encode", d.path, err)
	}

	staged := d.path + ".new"
	if err := fileutil.WriteFileAtomic(staged, buf.Bytes(), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "database", "write", staged, err)
	}
	if err := fileutil.Rotate(d.path, d.BackupPath()); err != nil {
		_ = os.Remove(staged)
		return services.Wrap(services.ErrConfiguration, "database", "rotate", d.path, err)
	}
	if err := os.Rename(staged, d.path); err != nil {
		return services.Wrap(services.ErrConfiguration, "database", "install", d.path, err)
	}
	return nil
}

// RestoreBackup copies the backup over a missing live database. It reports
// whether a restore happened.
func RestoreBackup(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	backup := path + BackupSuffix
	if _, err := os.Stat(backup); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := fileutil.CopyFile(backup, path); err != nil {
		return false, fmt.Errorf("restore %s from backup: %w", path, err)
	}
	return true, nil
}
