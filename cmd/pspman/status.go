package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"pspman/internal/actions"
)

type statusReporter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
}

func newStatusReporter(out io.Writer, colorize bool) *statusReporter {
	return &statusReporter{out: out, colorize: colorize}
}

// Report prints one line per terminal outcome. Both sinks share the writer.
func (r *statusReporter) Report(s actions.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, renderStatusLine(s, r.colorize))
}

func renderStatusLine(s actions.Status, colorize bool) string {
	mark, colors := "[OK]", text.Colors{text.FgGreen}
	if !s.Success {
		mark, colors = "[FAIL]", text.Colors{text.FgRed, text.Bold}
	}
	line := fmt.Sprintf("%-6s %s: %s", mark, s.Project, s.Verb)
	if s.Detail != "" {
		line += " (" + s.Detail + ")"
	}
	if colorize {
		return colors.Sprint(line)
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var _ actions.Reporter = (*statusReporter)(nil)
