//go:build unix

package framework

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup arranges for the child and all its descendants to be
// killed together when the execution context is cancelled.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Negative pid addresses the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
