package actions

import (
	"context"
	"fmt"

	"pspman/internal/logging"
	"pspman/internal/project"
	"pspman/internal/queue"
	"pspman/internal/shell"
)

// Clone fetches a new project into the clone directory, detects its install
// backend, and marks it for install unless it is pull-only.
func (e *Executor) Clone(ctx context.Context, rec *project.Record) queue.Result {
	tag := rec.Tag
	if rec.URL == "" {
		tag.MarkFailed(project.StepClone, "unknown clone URL")
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("Unknown clone URL for %s", rec.Name), Tag: tag}
	}

	dest := rec.Path(e.cloneDir)
	args := []string{"clone", "--recurse-submodules"}
	if rec.Branch != "" {
		args = append(args, "--branch", rec.Branch)
	}
	args = append(args, rec.URL, dest)
	if _, err := e.runner.Run(ctx, shell.Command{Name: "git", Args: args, Dir: e.cloneDir, Mode: shell.ModeReport}); err != nil {
		tag.MarkFailed(project.StepClone, err.Error())
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("FAILED cloning source of %s", rec.Name), Tag: tag}
	}

	backend := project.ClassifyBackend(dest)
	if err := tag.SetBackend(backend); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, e.logger), "install backend conflict", "tag_conflict",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the project from the database and add it again"),
		)
		tag.MarkFailed(project.StepClone, err.Error())
		return queue.Result{Name: rec.Name, Message: fmt.Sprintf("FAILED classifying %s: %v", rec.Name, err), Tag: tag}
	}

	tag.ClearPending(project.PendingPull)
	if !rec.PullOnly {
		tag.MarkPending(project.PendingInstall)
	}
	tag.MarkSucceeded(project.StepClone, true)
	return queue.Result{
		Name:    rec.Name,
		Message: fmt.Sprintf("Cloned source of %s", rec.Name),
		Tag:     tag,
		Success: true,
		Touch:   true,
	}
}
