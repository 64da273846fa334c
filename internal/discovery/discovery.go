// Package discovery finds git working trees under the clone directory that
// the project database does not track yet.
package discovery

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"pspman/internal/logging"
	"pspman/internal/project"
	"pspman/internal/services"
	"pspman/internal/shell"
)

// Scanner reads working trees and their fetch remotes.
type Scanner struct {
	cloneDir string
	runner   shell.Runner
	logger   *slog.Logger
}

// New builds a scanner for cloneDir.
func New(cloneDir string, runner shell.Runner, logger *slog.Logger) *Scanner {
	return &Scanner{
		cloneDir: cloneDir,
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "discovery"),
	}
}

// Scan returns a record for every subdirectory holding a .git directory whose
// name is not already tracked. tracked is consulted with the directory name.
// Records come back sorted by name with their install backend classified.
func (s *Scanner) Scan(ctx context.Context, tracked func(dir string) bool) ([]*project.Record, error) {
	entries, err := os.ReadDir(s.cloneDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "discovery", "read clone dir", s.cloneDir, err)
	}

	var found []*project.Record
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		leaf := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(leaf, ".") {
			continue
		}
		if tracked != nil && tracked(leaf) {
			continue
		}
		dir := filepath.Join(s.cloneDir, leaf)
		if info, err := os.Stat(filepath.Join(dir, ".git")); err != nil || !info.IsDir() {
			continue
		}

		url := s.fetchURL(ctx, dir)
		rec, err := project.NewRecord(url, leaf)
		if err != nil {
			s.logger.Warn("skipping unrecognised working tree",
				logging.String(logging.FieldProject, leaf),
				logging.Error(err),
			)
			continue
		}
		if url == "" {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "source URL unavailable", "remote_missing",
				logging.String(logging.FieldProject, leaf),
				logging.String(logging.FieldImpact, "project is pulled but cannot be cloned again"),
				logging.String(logging.FieldErrorHint, "add a fetch remote with git remote add origin <url>"),
			)
		}
		rec.Tag.Backend = project.ClassifyBackend(dir)
		found = append(found, rec)
	}
	slices.SortFunc(found, func(a, b *project.Record) int { return strings.Compare(a.Name, b.Name) })
	s.logger.Debug("discovery finished", logging.Int("untracked", len(found)))
	return found, nil
}

func (s *Scanner) fetchURL(ctx context.Context, dir string) string {
	out, err := s.runner.Run(ctx, shell.Command{
		Name: "git",
		Args: []string{"-C", dir, "remote", "-v"},
		Dir:  dir,
		Mode: shell.ModeReport,
	})
	if err != nil {
		return ""
	}
	return ParseFetchURL(out.Stdout)
}

// ParseFetchURL extracts the URL of the first "(fetch)" line of git remote -v.
func ParseFetchURL(remotes string) string {
	for _, line := range strings.Split(remotes, "\n") {
		if !strings.Contains(line, "(fetch)") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return fields[1]
		}
	}
	return ""
}
