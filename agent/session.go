package agent

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/assix/software-engineer-ai-agent/heal"
	"github.com/assix/software-engineer-ai-agent/runner"
	"github.com/assix/software-engineer-ai-agent/sanitize"
)

// Outcome is the terminal state of a session.
type Outcome string

const (
	// OutcomeSucceeded means a generated script exited cleanly.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeExhausted means the attempt budget ran out first.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeFailed means an infrastructure error ended the session.
	OutcomeFailed Outcome = "failed"
)

// Attempt records one generation cycle: the raw model output, the sanitized
// script, every execution of that script (heal re-runs included), and any
// healing actions taken. Attempts are append-only and never mutated once
// the loop moves past them.
type Attempt struct {
	Seq             int
	RawOutput       string
	Script          string
	SanitizeVerdict sanitize.Verdict
	Installs        []string
	Executions      []*runner.ExecutionResult
	Heals           []heal.Result
}

// LastExecution returns the most recent run of this attempt's script.
func (a *Attempt) LastExecution() *runner.ExecutionResult {
	if a == nil || len(a.Executions) == 0 {
		return nil
	}
	return a.Executions[len(a.Executions)-1]
}

// ErrorText renders the failure signal this attempt would feed into the
// next repair prompt. Heal failures are folded in so the model learns the
// environment could not be fixed mechanically.
func (a *Attempt) ErrorText() string {
	if a.SanitizeVerdict != sanitize.VerdictScript {
		return fmt.Sprintf("the previous response contained no executable script after cleanup (%s)", a.SanitizeVerdict)
	}
	exec := a.LastExecution()
	if exec == nil {
		return "the previous script was never executed"
	}
	switch exec.Failure {
	case runner.FailureMissingDependency:
		detail := "no installer output"
		if h := a.lastHeal(); h != nil {
			detail = h.Detail
		}
		return fmt.Sprintf("import of module %q failed and automatic installation did not succeed: %s", exec.Package, detail)
	case runner.FailureNone:
		return ""
	default:
		return exec.Trace
	}
}

func (a *Attempt) lastHeal() *heal.Result {
	if len(a.Heals) == 0 {
		return nil
	}
	return &a.Heals[len(a.Heals)-1]
}

// Session is one full run of the repair loop for a single task.
type Session struct {
	ID         string
	Task       string
	StartedAt  time.Time
	FinishedAt time.Time
	Attempts   []*Attempt
	// Iterations counts script executions across all attempts, including
	// heal re-runs. Bounded by Limits.MaxIterations.
	Iterations int
	Outcome    Outcome
	FinalError string
}

// NewSession starts a session for the given task.
func NewSession(task string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Task:      task,
		StartedAt: time.Now().UTC(),
	}
}

// LastAttempt returns the most recent attempt, or nil before the first one.
func (s *Session) LastAttempt() *Attempt {
	if len(s.Attempts) == 0 {
		return nil
	}
	return s.Attempts[len(s.Attempts)-1]
}

// FinalScript returns the script that succeeded, or empty.
func (s *Session) FinalScript() string {
	if s.Outcome != OutcomeSucceeded {
		return ""
	}
	if a := s.LastAttempt(); a != nil {
		return a.Script
	}
	return ""
}

// FinalOutput returns the stdout of the successful run, or empty.
func (s *Session) FinalOutput() string {
	if s.Outcome != OutcomeSucceeded {
		return ""
	}
	if a := s.LastAttempt(); a != nil {
		if exec := a.LastExecution(); exec != nil {
			return exec.Stdout
		}
	}
	return ""
}

// HealCount totals healing actions across all attempts.
func (s *Session) HealCount() int {
	n := 0
	for _, a := range s.Attempts {
		n += len(a.Heals)
	}
	return n
}
