package actions

import (
	"context"
	"fmt"
	"strings"

	"pspman/internal/project"
	"pspman/internal/queue"
	"pspman/internal/shell"
)

type pullChange int

const (
	pullUnknown pullChange = iota
	pullUnchanged
	pullChanged
)

var (
	upToDateMarkers = []string{"already up to date", "already up-to-date"}
	changedMarkers  = []string{"updating ", "fast-forward", "merge made by"}
)

// Update pulls an existing project. New revisions mark the project for install;
// an up-to-date tree is a successful no-op.
func (e *Executor) Update(ctx context.Context, rec *project.Record) queue.Result {
	tag := rec.Tag
	dir := rec.Path(e.cloneDir)

	before := e.revision(ctx, dir)
	out, err := e.runner.Run(ctx, shell.Command{
		Name: "git",
		Args: []string{"pull", "--recurse-submodules"},
		Dir:  dir,
		Mode: shell.ModeIgnore,
	})
	if err == nil && !out.OK() {
		err = fmt.Errorf("git pull exited %d: %s", out.ExitCode, firstLine(out.Stderr))
	}
	if err != nil {
		tag.MarkFailed(project.StepPull, err.Error())
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("FAILED updating code for %s", rec.Name), Tag: tag}
	}
	after := e.revision(ctx, dir)

	change := compareRevisions(before, after)
	if change == pullUnknown {
		change = classifyPullOutput(out.Stdout + "\n" + out.Stderr)
	}
	if change == pullUnknown {
		tag.MarkFailed(project.StepPull, "unrecognised git pull output")
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("FAILED updating code for %s", rec.Name), Tag: tag}
	}

	retryInstall := tag.Pending == project.PendingInstall ||
		(tag.Failed() && tag.Outcome.Step == project.StepInstall)
	tag.ClearPending(project.PendingPull)
	if !rec.PullOnly && (change == pullChanged || retryInstall) {
		tag.MarkPending(project.PendingInstall)
	}

	if change == pullChanged {
		tag.MarkSucceeded(project.StepPull, true)
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("Updated code for %s", rec.Name), Tag: tag, Success: true, Touch: true}
	}
	tag.MarkSucceeded(project.StepPull, false)
	return queue.Result{Name: rec.Name, Message: fmt.Sprintf("%s is up to date", rec.Name), Tag: tag, Success: true}
}

func (e *Executor) revision(ctx context.Context, dir string) string {
	out, err := e.runner.Run(ctx, shell.Command{
		Name: "git",
		Args: []string{"rev-parse", "HEAD"},
		Dir:  dir,
		Mode: shell.ModeIgnore,
	})
	if err != nil || !out.OK() {
		return ""
	}
	return strings.TrimSpace(out.Stdout)
}

func compareRevisions(before, after string) pullChange {
	if before == "" || after == "" {
		return pullUnknown
	}
	if before == after {
		return pullUnchanged
	}
	return pullChanged
}

func classifyPullOutput(output string) pullChange {
	lower := strings.ToLower(output)
	for _, marker := range upToDateMarkers {
		if strings.Contains(lower, marker) {
			return pullUnchanged
		}
	}
	for _, marker := range changedMarkers {
		if strings.Contains(lower, marker) {
			return pullChanged
		}
	}
	return pullUnknown
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
