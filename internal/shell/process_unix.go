//go:build unix

package shell

import (
	"os/exec"
	"syscall"
)

// detach starts the command in its own process group so a terminal interrupt
// aimed at pspman does not reach a build that is still running.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
