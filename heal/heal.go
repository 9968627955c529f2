// Package heal installs packages the interpreter reported as missing.
// Healing is a single-shot, idempotent environment mutation: it never
// retries installation and never touches the script.
package heal

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/assix/software-engineer-ai-agent/framework"
)

// Overrides maps import names to their installable package names for the
// well-known cases where the two differ. The fallback is import name ==
// package name, which is a documented source of residual failures: the
// mapping is not derivable from the error text alone.
var Overrides = map[string]string{
	"bs4":     "beautifulsoup4",
	"sklearn": "scikit-learn",
	"cv2":     "opencv-python",
	"PIL":     "Pillow",
	"yaml":    "PyYAML",
}

// systemPackages are not pip installable and go through the OS package
// manager instead. Keyed by import name, then GOOS.
var systemPackages = map[string]map[string][]string{
	"tkinter": {
		"linux":  {"sudo", "apt-get", "install", "-y", "python3-tk"},
		"darwin": {"brew", "install", "python-tk"},
	},
}

// Result reports whether healing was applied for one missing-dependency
// event, plus installer output for diagnostics.
type Result struct {
	Package string
	Applied bool
	Detail  string
}

// Healer installs missing packages through the configured interpreter's pip.
type Healer struct {
	Interpreter string
	Timeout     time.Duration
	Runner      framework.CommandRunner
	Debug       bool

	// goos is overridable in tests; empty means runtime.GOOS.
	goos string
}

// NewHealer builds a healer with defaults matching the script runner.
func NewHealer(interpreter string, timeout time.Duration, cr framework.CommandRunner) *Healer {
	if interpreter == "" {
		interpreter = "python3"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if cr == nil {
		cr = framework.NewLocalCommandRunner()
	}
	return &Healer{Interpreter: interpreter, Timeout: timeout, Runner: cr}
}

// Heal resolves the import name and invokes the installer once. Installing
// an already-present package is a no-op success from pip's point of view,
// which keeps the operation idempotent.
func (h *Healer) Heal(ctx context.Context, importName string) Result {
	if _, isSystem := systemPackages[importName]; isSystem {
		cmd, ok := h.systemCommand(importName)
		if !ok {
			return Result{Package: importName, Detail: "no known system package manager command for this platform"}
		}
		return h.install(ctx, importName, cmd)
	}
	pkg := importName
	if mapped, ok := Overrides[importName]; ok {
		pkg = mapped
	}
	cmd := []string{h.Interpreter, "-m", "pip", "install", pkg}
	res := h.install(ctx, importName, cmd)
	res.Package = pkg
	return res
}

func (h *Healer) install(ctx context.Context, importName string, cmd []string) Result {
	h.logf("installing %s via %s", importName, strings.Join(cmd, " "))
	res, err := h.Runner.Run(ctx, framework.CommandRequest{
		Args:    cmd,
		Timeout: h.Timeout,
	})
	if err != nil {
		return Result{Package: importName, Detail: fmt.Sprintf("installer could not start: %v", err)}
	}
	if res.TimedOut {
		return Result{Package: importName, Detail: "installer timed out"}
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("installer exited with code %d", res.ExitCode)
		}
		return Result{Package: importName, Detail: detail}
	}
	return Result{Package: importName, Applied: true, Detail: strings.TrimSpace(res.Stdout)}
}

// systemCommand returns the OS package-manager command for imports that are
// not pip installable. Unknown OS/package combinations heal nothing.
func (h *Healer) systemCommand(importName string) ([]string, bool) {
	byOS, ok := systemPackages[importName]
	if !ok {
		return nil, false
	}
	goos := h.goos
	if goos == "" {
		goos = runtime.GOOS
	}
	cmd, ok := byOS[goos]
	return cmd, ok
}

func (h *Healer) logf(format string, args ...interface{}) {
	if !h.Debug {
		return
	}
	log.Printf("[heal] "+format, args...)
}
