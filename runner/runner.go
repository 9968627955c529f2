// Package runner executes sanitized scripts as child processes and
// classifies the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/assix/software-engineer-ai-agent/framework"
)

// FailureKind classifies a failed execution.
type FailureKind string

const (
	FailureNone              FailureKind = "none"
	FailureMissingDependency FailureKind = "missing_dependency"
	FailureRuntime           FailureKind = "runtime_error"
	FailureTimeout           FailureKind = "timeout"
)

// ExecutionResult is the outcome of running one script.
type ExecutionResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Failure  FailureKind
	// Package is set only for FailureMissingDependency.
	Package string
	// Trace is set for FailureRuntime and FailureTimeout; it is the text
	// fed back to the model on the next generation.
	Trace string
}

// Succeeded reports whether the script exited cleanly.
func (r *ExecutionResult) Succeeded() bool {
	return r != nil && r.Failure == FailureNone
}

var moduleNotFound = regexp.MustCompile(`(?:ModuleNotFoundError|ImportError): No module named '?([A-Za-z0-9_.]+)'?`)

// ScriptRunner writes scripts to short-lived files and runs them through an
// interpreter under a wall-clock timeout.
type ScriptRunner struct {
	Interpreter string
	Workdir     string
	Timeout     time.Duration
	Runner      framework.CommandRunner
}

// NewScriptRunner builds a runner with sane defaults.
func NewScriptRunner(interpreter string, timeout time.Duration, cr framework.CommandRunner) *ScriptRunner {
	if interpreter == "" {
		interpreter = "python3"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cr == nil {
		cr = framework.NewLocalCommandRunner()
	}
	return &ScriptRunner{Interpreter: interpreter, Timeout: timeout, Runner: cr}
}

// Run materializes the script under a temp directory, executes it, and
// classifies the result. The temp directory is removed on every exit path.
// The label only influences the generated file name for readability.
func (r *ScriptRunner) Run(ctx context.Context, script, label string) (*ExecutionResult, error) {
	if strings.TrimSpace(script) == "" {
		return nil, errors.New("script body required")
	}
	dir, err := os.MkdirTemp("", "swea-run-*")
	if err != nil {
		return nil, fmt.Errorf("create script dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, scriptFileName(label))
	// The header makes leftover files attributable if cleanup ever fails.
	body := fmt.Sprintf("# TASK: %s\n%s", strings.TrimSpace(label), script)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return nil, fmt.Errorf("write script: %w", err)
	}

	res, err := r.Runner.Run(ctx, framework.CommandRequest{
		Workdir: r.Workdir,
		Args:    []string{r.Interpreter, path},
		Timeout: r.Timeout,
	})
	if err != nil {
		// Spawn failures (interpreter missing, fork denied) still surface
		// as a classified runtime failure so the loop stays in control.
		return &ExecutionResult{
			ExitCode: -1,
			Failure:  FailureRuntime,
			Trace:    err.Error(),
		}, nil
	}
	return Classify(res), nil
}

// Classify derives the failure classification from raw process output.
// The checks are ordered: success, timeout, missing dependency, runtime.
func Classify(res *framework.CommandResult) *ExecutionResult {
	out := &ExecutionResult{
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Duration: res.Duration,
		Failure:  FailureNone,
	}
	switch {
	case res.TimedOut:
		out.Failure = FailureTimeout
		out.Trace = fmt.Sprintf("execution exceeded the %s timeout; the script likely blocks or loops forever", res.Duration.Round(time.Second))
	case res.ExitCode == 0:
		// success
	default:
		if m := moduleNotFound.FindStringSubmatch(res.Stderr); m != nil {
			out.Failure = FailureMissingDependency
			out.Package = importRoot(m[1])
		} else {
			out.Failure = FailureRuntime
			out.Trace = strings.TrimSpace(res.Stderr)
			if out.Trace == "" {
				out.Trace = fmt.Sprintf("script exited with code %d and no stderr output", res.ExitCode)
			}
		}
	}
	return out
}

// importRoot reduces a dotted module path to its installable root
// (pkg.submodule -> pkg).
func importRoot(module string) string {
	if i := strings.Index(module, "."); i > 0 {
		return module[:i]
	}
	return module
}

var slugStrip = regexp.MustCompile(`[^a-z0-9\s]+`)
var slugSpace = regexp.MustCompile(`\s+`)

// scriptFileName slugifies the label into generated_<slug>.py.
func scriptFileName(label string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(label), "")
	slug = strings.Trim(slugSpace.ReplaceAllString(strings.TrimSpace(slug), "_"), "_")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	if slug == "" {
		slug = "script"
	}
	return "generated_" + slug + ".py"
}
