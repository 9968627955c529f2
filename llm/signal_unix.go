//go:build unix

package llm

import "syscall"

var terminateSignal = syscall.SIGTERM
