package llm

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"
)

// Supervisor starts an Ollama server on demand and stops it again when the
// session ends, so the model only occupies RAM while a task is running.
// If the endpoint is already healthy, the supervisor leaves it alone and
// Stop becomes a no-op.
type Supervisor struct {
	Client       *Client
	StartCommand []string
	ReadyPoll    time.Duration
	ReadyBudget  time.Duration
	Debug        bool

	proc *exec.Cmd
}

// NewSupervisor builds a supervisor for the given client.
func NewSupervisor(client *Client) *Supervisor {
	return &Supervisor{
		Client:       client,
		StartCommand: []string{"ollama", "serve"},
		ReadyPoll:    time.Second,
		ReadyBudget:  20 * time.Second,
	}
}

// EnsureRunning probes the endpoint and, when unreachable, launches the
// serve process and waits for it to become healthy within the ready budget.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := s.Client.Ping(probeCtx)
	cancel()
	if err == nil {
		return nil
	}

	s.logf("endpoint %s unreachable, starting %v", s.Client.Endpoint, s.StartCommand)
	cmd := exec.Command(s.StartCommand[0], s.StartCommand[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.StartCommand[0], err)
	}
	s.proc = cmd

	deadline := time.Now().Add(s.ReadyBudget)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-time.After(s.ReadyPoll):
		}
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.Client.Ping(probeCtx)
		cancel()
		if err == nil {
			s.logf("backend ready")
			return nil
		}
	}
	s.Stop()
	return fmt.Errorf("%s did not become healthy within %s", s.StartCommand[0], s.ReadyBudget)
}

// Stop terminates the serve process if this supervisor started it. The
// process gets a short grace period before being killed outright.
func (s *Supervisor) Stop() {
	if s.proc == nil || s.proc.Process == nil {
		return
	}
	s.logf("stopping backend to free RAM")
	_ = s.proc.Process.Signal(terminateSignal)
	done := make(chan struct{})
	go func() {
		_, _ = s.proc.Process.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		_ = s.proc.Process.Kill()
	}
	s.proc = nil
}

// Managed reports whether this supervisor owns a serve process.
func (s *Supervisor) Managed() bool {
	return s.proc != nil
}

func (s *Supervisor) logf(format string, args ...interface{}) {
	if !s.Debug {
		return
	}
	log.Printf("[supervisor] "+format, args...)
}
