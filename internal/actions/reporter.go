package actions

import (
	"log/slog"

	"pspman/internal/logging"
	"pspman/internal/project"
)

// Status is one user-facing line emitted by a sink.
type Status struct {
	Project string
	Step    project.Step
	Verb    string
	Success bool
	Detail  string
}

// Reporter receives sink status lines.
type Reporter interface {
	Report(Status)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Status)

func (f ReporterFunc) Report(s Status) { f(s) }

// LogReporter writes status lines to logger.
func LogReporter(logger *slog.Logger) Reporter {
	return ReporterFunc(func(s Status) {
		attrs := []logging.Attr{
			logging.String(logging.FieldProject, s.Project),
			logging.String("step", s.Step.String()),
		}
		if s.Detail != "" {
			attrs = append(attrs, logging.String("detail", s.Detail))
		}
		if s.Success {
			logger.Info(s.Verb, logging.Args(attrs...)...)
			return
		}
		logger.Error(s.Verb, logging.Args(attrs...)...)
	})
}
