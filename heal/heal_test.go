package heal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/assix/software-engineer-ai-agent/framework"
)

type fakeCommandRunner struct {
	calls  [][]string
	result *framework.CommandResult
	err    error
}

func (f *fakeCommandRunner) Run(ctx context.Context, req framework.CommandRequest) (*framework.CommandResult, error) {
	f.calls = append(f.calls, req.Args)
	return f.result, f.err
}

func TestHealInstallsViaPip(t *testing.T) {
	fake := &fakeCommandRunner{result: &framework.CommandResult{ExitCode: 0, Stdout: "Successfully installed requests"}}
	h := NewHealer("python3", time.Minute, fake)

	res := h.Heal(context.Background(), "requests")
	assert.True(t, res.Applied)
	assert.Equal(t, "requests", res.Package)
	assert.Equal(t, []string{"python3", "-m", "pip", "install", "requests"}, fake.calls[0])
}

func TestHealAppliesOverrideTable(t *testing.T) {
	cases := map[string]string{
		"bs4":     "beautifulsoup4",
		"sklearn": "scikit-learn",
		"cv2":     "opencv-python",
		"PIL":     "Pillow",
		"yaml":    "PyYAML",
	}
	for importName, pkg := range cases {
		fake := &fakeCommandRunner{result: &framework.CommandResult{ExitCode: 0}}
		h := NewHealer("python3", time.Minute, fake)
		res := h.Heal(context.Background(), importName)
		assert.True(t, res.Applied, importName)
		assert.Equal(t, pkg, res.Package, importName)
		assert.Equal(t, pkg, fake.calls[0][len(fake.calls[0])-1], importName)
	}
}

func TestHealInstallerFailure(t *testing.T) {
	fake := &fakeCommandRunner{result: &framework.CommandResult{ExitCode: 1, Stderr: "ERROR: No matching distribution found for nosuchpkg"}}
	h := NewHealer("python3", time.Minute, fake)

	res := h.Heal(context.Background(), "nosuchpkg")
	assert.False(t, res.Applied)
	assert.Contains(t, res.Detail, "No matching distribution")
	// A single attempt per event: no internal retries.
	assert.Len(t, fake.calls, 1)
}

func TestHealInstallerSpawnFailure(t *testing.T) {
	fake := &fakeCommandRunner{err: errors.New("fork failed")}
	h := NewHealer("python3", time.Minute, fake)
	res := h.Heal(context.Background(), "requests")
	assert.False(t, res.Applied)
	assert.Contains(t, res.Detail, "could not start")
}

func TestHealInstallerTimeout(t *testing.T) {
	fake := &fakeCommandRunner{result: &framework.CommandResult{TimedOut: true, ExitCode: -1}}
	h := NewHealer("python3", time.Minute, fake)
	res := h.Heal(context.Background(), "requests")
	assert.False(t, res.Applied)
	assert.Contains(t, res.Detail, "timed out")
}

func TestHealSystemPackageLinux(t *testing.T) {
	fake := &fakeCommandRunner{result: &framework.CommandResult{ExitCode: 0}}
	h := NewHealer("python3", time.Minute, fake)
	h.goos = "linux"

	res := h.Heal(context.Background(), "tkinter")
	assert.True(t, res.Applied)
	joined := strings.Join(fake.calls[0], " ")
	assert.Contains(t, joined, "apt-get")
	assert.Contains(t, joined, "python3-tk")
}

func TestHealSystemPackageDarwin(t *testing.T) {
	fake := &fakeCommandRunner{result: &framework.CommandResult{ExitCode: 0}}
	h := NewHealer("python3", time.Minute, fake)
	h.goos = "darwin"

	res := h.Heal(context.Background(), "tkinter")
	assert.True(t, res.Applied)
	assert.Equal(t, []string{"brew", "install", "python-tk"}, fake.calls[0])
}

func TestHealSystemPackageUnknownPlatform(t *testing.T) {
	fake := &fakeCommandRunner{result: &framework.CommandResult{ExitCode: 0}}
	h := NewHealer("python3", time.Minute, fake)
	h.goos = "plan9"

	res := h.Heal(context.Background(), "tkinter")
	assert.False(t, res.Applied)
	assert.Empty(t, fake.calls)
}
