package actions

import (
	"log/slog"
	"os"

	"pspman/internal/logging"
	"pspman/internal/shell"
)

const defaultPython = "python3"

// Executor carries the read-only environment every action needs.
type Executor struct {
	cloneDir string
	prefix   string
	runner   shell.Runner
	logger   *slog.Logger
	reporter Reporter
	python   string
	remove   func(path string) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger injects the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithReporter sets the sink for user-facing status lines.
func WithReporter(r Reporter) Option {
	return func(e *Executor) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithPython overrides the interpreter used by the pip backend.
func WithPython(binary string) Option {
	return func(e *Executor) {
		if binary != "" {
			e.python = binary
		}
	}
}

// WithRemover replaces the recursive removal used by Delete (primarily for tests).
func WithRemover(remove func(path string) error) Option {
	return func(e *Executor) {
		if remove != nil {
			e.remove = remove
		}
	}
}

// New builds an Executor for one clone directory and install prefix.
func New(cloneDir, prefix string, runner shell.Runner, opts ...Option) *Executor {
	e := &Executor{
		cloneDir: cloneDir,
		prefix:   prefix,
		runner:   runner,
		python:   defaultPython,
		remove:   os.RemoveAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = logging.NewComponentLogger(e.logger, "actions")
	if e.reporter == nil {
		e.reporter = LogReporter(e.logger)
	}
	return e
}
