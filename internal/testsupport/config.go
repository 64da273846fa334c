package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"pspman/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The clone directory, prefix and log directory are created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Prefix = filepath.Join(base, "prefix")
	cfgVal.Paths.CloneDir = filepath.Join(base, "prefix", "src")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Run.Parallelism = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Normalize(); err != nil {
		t.Fatalf("normalize test config: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("create test directories: %v", err)
	}
	return builder.cfg
}

// WithOnlyPull suppresses the install queue.
func WithOnlyPull() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.OnlyPull = true
	}
}

// WithStale skips pulling existing projects.
func WithStale() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.Stale = true
	}
}

// WithParallelism overrides the per-queue worker count.
func WithParallelism(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.Parallelism = n
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default pspman external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"git", "make", "python3", "meson", "ninja", "go"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.Prefix)
}
