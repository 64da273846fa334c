package testsupport

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"pspman/internal/shell"
)

// CommandHandler answers one fake command.
type CommandHandler func(cmd shell.Command) (shell.Output, error)

// FakeRunner is a shell.Runner that records every command and answers through
// Handler. A nil Handler succeeds with empty output.
type FakeRunner struct {
	Handler CommandHandler

	mu    sync.Mutex
	calls []shell.Command
}

// Run records cmd and delegates to Handler.
func (f *FakeRunner) Run(ctx context.Context, cmd shell.Command) (shell.Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	if f.Handler == nil {
		return shell.Output{}, nil
	}
	return f.Handler(cmd)
}

// Calls returns the recorded commands in order.
func (f *FakeRunner) Calls() []shell.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]shell.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CommandLines renders the recorded commands as space-joined strings.
func (f *FakeRunner) CommandLines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Failure builds the error a real runner returns for a non-zero exit under a
// failing mode, or the output alone under ModeIgnore.
func Failure(cmd shell.Command, exitCode int, stderr string) (shell.Output, error) {
	out := shell.Output{Stderr: stderr, ExitCode: exitCode}
	if cmd.Mode == shell.ModeIgnore {
		return out, nil
	}
	return out, &shell.CommandError{
		Argv:     cmd.Argv(),
		Dir:      cmd.Dir,
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      errors.New("exit status " + strconv.Itoa(exitCode)),
	}
}
