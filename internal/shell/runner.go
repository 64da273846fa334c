package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"pspman/internal/logging"
	"pspman/internal/services"
)

// Mode selects how a failed command is surfaced.
type Mode int

const (
	// ModeFail returns a *CommandError and logs stderr at error level.
	ModeFail Mode = iota
	// ModeReport returns a *CommandError and logs stderr at debug level.
	ModeReport
	// ModeNag returns a *CommandError and logs stderr as a warning.
	ModeNag
	// ModeIgnore never fails on exit status; callers inspect Output themselves.
	ModeIgnore
)

func (m Mode) String() string {
	switch m {
	case ModeFail:
		return "fail"
	case ModeReport:
		return "report"
	case ModeNag:
		return "nag"
	case ModeIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Command describes one external invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries (KEY=value) are layered over the inherited environment.
	Env  []string
	Mode Mode
}

// Argv returns the full argument vector.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Output is the captured result of a finished command.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the command exited zero.
func (o Output) OK() bool { return o.ExitCode == 0 }

// Runner abstracts command execution for testability.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// CommandError reports a command that could not start or exited non-zero.
type CommandError struct {
	Argv     []string
	Dir      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	msg := fmt.Sprintf("%s exited %d", strings.Join(e.Argv, " "), e.ExitCode)
	if detail != "" {
		msg += ": " + firstLine(detail)
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

func (e *CommandError) Is(target error) bool { return target == services.ErrExternalTool }

// ExecRunner runs commands through os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner constructs the production runner.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{logger: logging.NewComponentLogger(logger, "shell")}
}

// Run executes cmd, capturing stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	logger := logging.WithContext(ctx, r.logger)
	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec
	execCmd.Dir = cmd.Dir
	detach(execCmd)
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}
	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	logger.Debug("running command",
		logging.String("command", cmd.String()),
		logging.String("dir", cmd.Dir),
		logging.Strings("env", cmd.Env),
	)
	runErr := execCmd.Run()

	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if execCmd.ProcessState != nil {
		out.ExitCode = execCmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	started := errors.As(runErr, &exitErr)
	if !started && out.ExitCode == 0 {
		out.ExitCode = -1
	}
	cmdErr := &CommandError{
		Argv:     cmd.Argv(),
		Dir:      cmd.Dir,
		ExitCode: out.ExitCode,
		Stderr:   out.Stderr,
		Err:      runErr,
	}

	if cmd.Mode == ModeIgnore && started {
		logger.Debug("command failed (ignored)", logging.String("command", cmd.String()), logging.Int("exit_code", out.ExitCode))
		return out, nil
	}

	attrs := []logging.Attr{
		logging.String("command", cmd.String()),
		logging.Int("exit_code", out.ExitCode),
		logging.String("stderr", firstLine(out.Stderr)),
	}
	switch cmd.Mode {
	case ModeFail:
		logging.ErrorWithContext(logger, "command failed", "command_failed", attrs...)
	case ModeNag:
		logging.WarnWithContext(logger, "command failed", "command_failed", attrs...)
	default:
		logger.Debug("command failed", logging.Args(attrs...)...)
	}
	return out, cmdErr
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
