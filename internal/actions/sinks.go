package actions

import (
	"context"
	"fmt"

	"pspman/internal/project"
	"pspman/internal/queue"
)

// Success is the terminal bookkeeping action for successful records.
func (e *Executor) Success(_ context.Context, rec *project.Record) queue.Result {
	verb := successVerb(rec.Tag)
	e.reporter.Report(Status{Project: rec.Name, Step: rec.Tag.Outcome.Step, Verb: verb, Success: true})
	return queue.Result{Name: rec.Name, Message: fmt.Sprintf("%s %s", verb, rec.Name), Tag: rec.Tag, Success: true}
}

// Failure is the terminal bookkeeping action for failed records. It never fails.
func (e *Executor) Failure(_ context.Context, rec *project.Record) queue.Result {
	verb := rec.Tag.Describe()
	e.reporter.Report(Status{
		Project: rec.Name,
		Step:    rec.Tag.Outcome.Step,
		Verb:    verb,
		Detail:  rec.Tag.Outcome.Reason,
	})
	msg := fmt.Sprintf("%s for %s", verb, rec.Name)
	if reason := rec.Tag.Outcome.Reason; reason != "" {
		msg += ": " + reason
	}
	return queue.Result{Name: rec.Name, Message: msg, Tag: rec.Tag, Success: true}
}

func successVerb(tag project.Tag) string {
	switch tag.Outcome.Step {
	case project.StepInstall:
		if tag.Outcome.Changed {
			return "installed"
		}
		return "checked"
	case project.StepClone:
		return "cloned"
	case project.StepPull:
		if tag.Outcome.Changed {
			return "updated"
		}
		return "up to date"
	case project.StepDelete:
		return "deleted"
	default:
		return "done"
	}
}
