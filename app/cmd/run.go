package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/assix/software-engineer-ai-agent/agent"
	"github.com/assix/software-engineer-ai-agent/framework"
	"github.com/assix/software-engineer-ai-agent/heal"
	"github.com/assix/software-engineer-ai-agent/llm"
	"github.com/assix/software-engineer-ai-agent/persistence"
	"github.com/assix/software-engineer-ai-agent/runner"
	"github.com/assix/software-engineer-ai-agent/tui"
)

func newRunCmd() *cobra.Command {
	var modelName string
	var endpoint string
	var useTUI bool
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "run <task description>",
		Short: "Generate a script for the task, execute it, and repair it until it works",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" {
				return fmt.Errorf("task description required")
			}
			cfg := globalCfg
			if modelName != "" {
				cfg.Model.Name = modelName
			}
			if endpoint != "" {
				cfg.Model.Endpoint = endpoint
			}
			if maxAttempts > 0 {
				cfg.Limits.MaxAttempts = maxAttempts
				cfg.Limits.MaxIterations = 2 * maxAttempts
			}

			ctx := cmd.Context()
			client := llm.NewClient(cfg.Model.Endpoint, cfg.Model.Name)
			client.SetDebugLogging(cfg.Logging.LLMDebug)

			if cfg.Features.ManageBackend {
				supervisor := llm.NewSupervisor(client)
				supervisor.Debug = cfg.Logging.LLMDebug
				if err := supervisor.EnsureRunning(ctx); err != nil {
					return &framework.InfrastructureError{Op: "backend startup", Err: err}
				}
				if supervisor.Managed() {
					cmd.PrintErrln("#> started ollama serve, will stop it when done")
				}
				defer supervisor.Stop()
			}

			sinks := []framework.Telemetry{}
			if cfg.Logging.LLMDebug {
				sinks = append(sinks, framework.LoggerTelemetry{})
			}
			if cfg.Logging.EventsFile != "" {
				jsonSink, err := framework.NewJSONFileTelemetry(cfg.Logging.EventsFile)
				if err != nil {
					return err
				}
				defer jsonSink.Close()
				sinks = append(sinks, jsonSink)
			}
			var uiSink *tui.Sink
			if useTUI {
				uiSink = tui.NewSink()
				sinks = append(sinks, uiSink)
			} else {
				sinks = append(sinks, consoleTelemetry{cmd: cmd})
			}

			cr := framework.NewLocalCommandRunner()
			scriptRunner := runner.NewScriptRunner(cfg.Interpreter, cfg.ScriptTimeout(), cr)
			scriptRunner.Workdir = workspace
			healer := heal.NewHealer(cfg.Interpreter, cfg.InstallTimeout(), cr)
			healer.Debug = cfg.Logging.HealDebug

			controller := agent.NewController(client, scriptRunner, healer, cfg, framework.MultiplexTelemetry{Sinks: sinks})

			var session *agent.Session
			var runErr error
			if useTUI {
				done := make(chan struct{})
				go func() {
					defer close(done)
					session, runErr = controller.Run(ctx, task)
				}()
				if err := tui.Run(task, uiSink); err != nil {
					return err
				}
				<-done
			} else {
				session, runErr = controller.Run(ctx, task)
			}

			if session != nil && cfg.History.Enabled {
				if store, err := persistence.OpenSessionStore(cfg.History.Path); err == nil {
					_ = store.Save(context.Background(), session)
					_ = store.Close()
				}
			}
			return report(cmd, session, runErr)
		},
	}
	cmd.Flags().StringVar(&modelName, "model", "", "Override the configured model")
	cmd.Flags().StringVar(&endpoint, "ollama", "", "Override the configured Ollama endpoint")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show live progress in a terminal UI")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Override the attempt budget")
	return cmd
}

// report prints the user-facing outcome and maps it onto the exit status:
// zero on success, an error (hence non-zero) on exhaustion or fatal failure.
func report(cmd *cobra.Command, session *agent.Session, runErr error) error {
	if runErr != nil {
		if framework.IsInfrastructure(runErr) {
			return fmt.Errorf("model backend is unavailable (this is not a code defect): %w", runErr)
		}
		return runErr
	}
	if session == nil {
		return fmt.Errorf("no session produced")
	}
	switch session.Outcome {
	case agent.OutcomeSucceeded:
		last := session.LastAttempt()
		cmd.Printf("solved %q in %d attempt(s), %d healing action(s)\n\n", session.Task, len(session.Attempts), session.HealCount())
		cmd.Println("--- script ---")
		cmd.Println(strings.TrimRight(last.Script, "\n"))
		cmd.Println("--- output ---")
		cmd.Print(session.FinalOutput())
		return nil
	case agent.OutcomeExhausted:
		lastErr := "(none recorded)"
		if a := session.LastAttempt(); a != nil {
			lastErr = a.ErrorText()
		}
		return fmt.Errorf("%w: task unresolved after %d attempt(s): last error: %s\nsee 'swea history --session %s' for the full trace",
			framework.ErrBudgetExhausted, len(session.Attempts), firstLine(lastErr), session.ID)
	default:
		return fmt.Errorf("session failed: %s", session.FinalError)
	}
}

// consoleTelemetry prints loop progress as plain lines, the default when
// the TUI is off.
type consoleTelemetry struct {
	cmd *cobra.Command
}

func (t consoleTelemetry) Emit(event framework.Event) {
	switch event.Type {
	case framework.EventGenerating, framework.EventExecuting, framework.EventHealing:
		t.cmd.PrintErrf("#> %s\n", event.Message)
	case framework.EventAttemptFinish:
		t.cmd.PrintErrf("   [!] attempt %d failed: %s\n", event.Attempt, firstLine(event.Message))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		// The root cause of a Python traceback sits on the last line.
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
