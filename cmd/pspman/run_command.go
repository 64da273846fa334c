package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pspman/internal/history"
	"pspman/internal/lockfile"
	"pspman/internal/logging"
	"pspman/internal/preflight"
	"pspman/internal/shell"
	"pspman/internal/workflow"
)

type runOptions struct {
	install   []string
	delete    []string
	onlyPull  bool
	stale     bool
	forceRisk bool
}

// failedProjectsError reports a run in which at least one project failed.
type failedProjectsError struct {
	failed int
}

func (e *failedProjectsError) Error() string {
	if e.failed == 1 {
		return "1 project failed"
	}
	return fmt.Sprintf("%d projects failed", e.failed)
}

func runUpdate(cmd *cobra.Command, ctx *commandContext, opts *runOptions) error {
	base, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg := *base
	cfg.Run.OnlyPull = cfg.Run.OnlyPull || opts.onlyPull
	cfg.Run.Stale = cfg.Run.Stale || opts.stale
	cfg.Run.ForceRisk = cfg.Run.ForceRisk || opts.forceRisk

	if err := preflight.Verify(&cfg); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	preflight.ReportOptionalTools(logger)

	runID := uuid.NewString()
	lock, err := lockfile.Acquire(cfg.LockPath(), lockfile.Holder(os.Getpid(), runID))
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release run lock", logging.String("path", lock.Path()), logging.Error(err))
		}
	}()

	journal, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history journal unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcomes of this run are not journaled"),
		)
		journal = nil
	}
	if journal != nil {
		defer journal.Close()
	}

	out := cmd.OutOrStdout()
	controller := workflow.New(&cfg, shell.NewExecRunner(logger),
		workflow.WithLogger(logger),
		workflow.WithReporter(newStatusReporter(out, shouldColorize(out))),
		workflow.WithHistory(journal),
		workflow.WithRunID(runID),
	)
	summary, err := controller.Run(cmd.Context(), workflow.Request{Install: opts.install, Delete: opts.delete})
	fmt.Fprintln(out, renderSummary(summary))
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return &failedProjectsError{failed: summary.Failed}
	}
	return nil
}

func renderSummary(s workflow.Summary) string {
	line := fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed)
	if s.Interrupted > 0 {
		line += fmt.Sprintf(", %d interrupted", s.Interrupted)
	}
	if s.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", s.Skipped)
	}
	return line
}
