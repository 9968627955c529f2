//go:build !unix

package framework

import "os/exec"

// configureProcessGroup is a no-op where process groups are unavailable;
// exec.CommandContext still kills the immediate child on cancellation.
func configureProcessGroup(cmd *exec.Cmd) {}
