package framework

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestLocalRunCapturesStdout(t *testing.T) {
	skipWithoutShell(t)
	r := NewLocalCommandRunner()
	res, err := r.Run(context.Background(), CommandRequest{Args: []string{"echo", "hello"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.False(t, res.TimedOut)
}

func TestLocalRunReportsExitCode(t *testing.T) {
	skipWithoutShell(t)
	r := NewLocalCommandRunner()
	res, err := r.Run(context.Background(), CommandRequest{Args: []string{"sh", "-c", "echo oops >&2; exit 3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "oops\n", res.Stderr)
}

func TestLocalRunTimeout(t *testing.T) {
	skipWithoutShell(t)
	r := NewLocalCommandRunner()
	start := time.Now()
	res, err := r.Run(context.Background(), CommandRequest{
		Args:    []string{"sleep", "30"},
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestLocalRunSpawnFailure(t *testing.T) {
	r := NewLocalCommandRunner()
	_, err := r.Run(context.Background(), CommandRequest{Args: []string{"no-such-binary-xyz"}})
	assert.Error(t, err)
}

func TestLocalRunRequiresArgs(t *testing.T) {
	r := NewLocalCommandRunner()
	_, err := r.Run(context.Background(), CommandRequest{})
	assert.Error(t, err)
}

func TestLocalRunFeedsStdin(t *testing.T) {
	skipWithoutShell(t)
	r := NewLocalCommandRunner()
	res, err := r.Run(context.Background(), CommandRequest{Args: []string{"cat"}, Input: "piped"})
	require.NoError(t, err)
	assert.Equal(t, "piped", res.Stdout)
}
