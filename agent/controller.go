// Package agent drives the closed generate-sanitize-execute-repair loop.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/assix/software-engineer-ai-agent/framework"
	"github.com/assix/software-engineer-ai-agent/heal"
	"github.com/assix/software-engineer-ai-agent/prompt"
	"github.com/assix/software-engineer-ai-agent/runner"
	"github.com/assix/software-engineer-ai-agent/sanitize"
)

// ScriptExecutor runs a sanitized script and classifies the outcome.
// *runner.ScriptRunner is the production implementation.
type ScriptExecutor interface {
	Run(ctx context.Context, script, label string) (*runner.ExecutionResult, error)
}

// DependencyHealer installs a missing package once.
// *heal.Healer is the production implementation.
type DependencyHealer interface {
	Heal(ctx context.Context, importName string) heal.Result
}

// Controller orchestrates the repair loop over an injected model backend,
// script runner, and healer. It owns the append-only attempt history; no
// state is shared between attempts besides that history.
type Controller struct {
	model     framework.LanguageModel
	runner    ScriptExecutor
	healer    DependencyHealer
	composer  *prompt.Composer
	cfg       *Config
	telemetry framework.Telemetry
}

// NewController wires a controller. runner and healer fall back to local
// defaults when nil; telemetry falls back to a no-op sink.
func NewController(model framework.LanguageModel, run ScriptExecutor, healer DependencyHealer, cfg *Config, tel framework.Telemetry) *Controller {
	if cfg == nil {
		cfg = DefaultConfig("")
	}
	cfg.normalize()
	if run == nil {
		run = runner.NewScriptRunner(cfg.Interpreter, cfg.ScriptTimeout(), nil)
	}
	if healer == nil {
		healer = heal.NewHealer(cfg.Interpreter, cfg.InstallTimeout(), nil)
	}
	if tel == nil {
		tel = framework.NopTelemetry{}
	}
	return &Controller{
		model:     model,
		runner:    run,
		healer:    healer,
		composer:  prompt.NewComposer(),
		cfg:       cfg,
		telemetry: tel,
	}
}

// Run executes the loop for one task until success, budget exhaustion, or a
// fatal infrastructure error. The returned session always carries the full
// attempt history; the error is non-nil only for infrastructure failures
// and cancellation.
func (c *Controller) Run(ctx context.Context, task string) (*Session, error) {
	session := NewSession(task)
	c.emit(framework.EventSessionStart, session, "task accepted", nil)
	defer func() {
		session.FinishedAt = time.Now().UTC()
		c.emit(framework.EventSessionFinish, session, string(session.Outcome), map[string]interface{}{
			"attempts":   len(session.Attempts),
			"iterations": session.Iterations,
			"heals":      session.HealCount(),
		})
	}()

	needGenerate := true
	var current *Attempt

	for {
		if err := ctx.Err(); err != nil {
			session.Outcome = OutcomeFailed
			session.FinalError = err.Error()
			return session, err
		}

		if needGenerate {
			if len(session.Attempts) >= c.cfg.Limits.MaxAttempts {
				session.Outcome = OutcomeExhausted
				return session, nil
			}
			att, err := c.generate(ctx, session)
			if err != nil {
				session.Outcome = OutcomeFailed
				session.FinalError = err.Error()
				return session, err
			}
			if att.SanitizeVerdict != sanitize.VerdictScript {
				// Fatal for this attempt only; the next generation sees the
				// cleanup failure as its error context.
				c.emit(framework.EventAttemptFinish, session, att.ErrorText(), nil)
				continue
			}
			if c.cfg.Features.ProactiveInstall {
				c.proactiveInstall(ctx, session, att)
			}
			current = att
			needGenerate = false
		}

		if session.Iterations >= c.cfg.Limits.MaxIterations {
			session.Outcome = OutcomeExhausted
			return session, nil
		}
		session.Iterations++

		c.emit(framework.EventExecuting, session, fmt.Sprintf("running script (iteration %d)", session.Iterations), nil)
		res, err := c.runner.Run(ctx, current.Script, task)
		if err != nil {
			res = &runner.ExecutionResult{ExitCode: -1, Failure: runner.FailureRuntime, Trace: err.Error()}
		}
		current.Executions = append(current.Executions, res)

		switch res.Failure {
		case runner.FailureNone:
			session.Outcome = OutcomeSucceeded
			c.emit(framework.EventScriptOutput, session, res.Stdout, nil)
			return session, nil

		case runner.FailureMissingDependency:
			c.emit(framework.EventHealing, session, fmt.Sprintf("installing missing module %q", res.Package), nil)
			hres := c.healer.Heal(ctx, res.Package)
			current.Heals = append(current.Heals, hres)
			if hres.Applied {
				// Re-run the identical script: healing consumes an
				// iteration but not a generation slot.
				continue
			}
			needGenerate = true

		default:
			needGenerate = true
		}

		c.emit(framework.EventAttemptFinish, session, current.ErrorText(), map[string]interface{}{
			"classification": string(res.Failure),
		})
	}
}

// generate asks the model for a script, sanitizes it, and appends the new
// attempt to the session. Backend failures are fatal and not retried.
func (c *Controller) generate(ctx context.Context, session *Session) (*Attempt, error) {
	att := &Attempt{Seq: len(session.Attempts) + 1}
	c.emit(framework.EventGenerating, session, fmt.Sprintf("requesting script (attempt %d/%d)", att.Seq, c.cfg.Limits.MaxAttempts), nil)

	composed := c.composer.Compose(session.Task, previousContext(session))
	resp, err := c.model.Generate(ctx, composed, c.llmOptions())
	if err != nil {
		return nil, &framework.InfrastructureError{Op: "generate", Err: err}
	}
	att.RawOutput = resp.Text

	c.emit(framework.EventSanitizing, session, "cleaning model output", nil)
	sres := sanitize.Clean(resp.Text)
	att.SanitizeVerdict = sres.Verdict
	att.Script = sres.Script
	att.Installs = sres.StrippedInstalls

	session.Attempts = append(session.Attempts, att)
	return att, nil
}

// proactiveInstall installs packages the sanitizer found on stripped
// install-command lines before the script's first run.
func (c *Controller) proactiveInstall(ctx context.Context, session *Session, att *Attempt) {
	for _, pkg := range att.Installs {
		c.emit(framework.EventHealing, session, fmt.Sprintf("proactively installing %q", pkg), nil)
		att.Heals = append(att.Heals, c.healer.Heal(ctx, pkg))
	}
}

// previousContext exposes only the immediately preceding attempt to the
// composer; older attempts never reach the prompt.
func previousContext(session *Session) *prompt.Previous {
	last := session.LastAttempt()
	if last == nil {
		return nil
	}
	return &prompt.Previous{
		Script:    last.Script,
		ErrorText: last.ErrorText(),
	}
}

func (c *Controller) llmOptions() *framework.LLMOptions {
	return &framework.LLMOptions{
		Model:       c.cfg.Model.Name,
		Temperature: c.cfg.Model.Temperature,
		MaxTokens:   c.cfg.Model.MaxTokens,
	}
}

func (c *Controller) emit(kind framework.EventType, session *Session, msg string, meta map[string]interface{}) {
	c.telemetry.Emit(framework.Event{
		Type:      kind,
		SessionID: session.ID,
		Attempt:   len(session.Attempts),
		Iteration: session.Iterations,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	})
}
