package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assix/software-engineer-ai-agent/agent"
	"github.com/assix/software-engineer-ai-agent/heal"
	"github.com/assix/software-engineer-ai-agent/runner"
	"github.com/assix/software-engineer-ai-agent/sanitize"
)

func openTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := OpenSessionStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession() *agent.Session {
	s := agent.NewSession("fetch a web page")
	s.Outcome = agent.OutcomeSucceeded
	s.Iterations = 3
	s.FinishedAt = s.StartedAt.Add(12 * time.Second)
	s.Attempts = []*agent.Attempt{
		{
			Seq:             1,
			RawOutput:       "Sure, here you go.",
			SanitizeVerdict: sanitize.VerdictEmpty,
		},
		{
			Seq:             2,
			Script:          "import requests\nprint(requests.get('http://x').status_code)\n",
			SanitizeVerdict: sanitize.VerdictScript,
			Executions: []*runner.ExecutionResult{
				{ExitCode: 1, Stderr: "ModuleNotFoundError: No module named 'requests'", Failure: runner.FailureMissingDependency, Package: "requests"},
				{ExitCode: 0, Stdout: "200\n", Failure: runner.FailureNone},
			},
			Heals: []heal.Result{{Package: "requests", Applied: true, Detail: "Successfully installed requests"}},
		},
	}
	return s
}

func TestSaveAndListSessions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))

	older := agent.NewSession("older task")
	older.StartedAt = time.Now().UTC().Add(-time.Hour)
	older.Outcome = agent.OutcomeExhausted
	older.FinalError = "ZeroDivisionError: division by zero"
	require.NoError(t, store.Save(ctx, older))

	summaries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Most recent first.
	assert.Equal(t, "fetch a web page", summaries[0].Task)
	assert.Equal(t, "succeeded", summaries[0].Outcome)
	assert.Equal(t, 2, summaries[0].Attempts)
	assert.Equal(t, 3, summaries[0].Iterations)
	assert.Equal(t, 1, summaries[0].Heals)

	assert.Equal(t, "older task", summaries[1].Task)
	assert.Equal(t, "exhausted", summaries[1].Outcome)
	assert.Contains(t, summaries[1].FinalError, "ZeroDivisionError")
}

func TestSaveIsIdempotentPerSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := sampleSession()

	require.NoError(t, store.Save(ctx, session))
	session.Outcome = agent.OutcomeExhausted
	require.NoError(t, store.Save(ctx, session))

	summaries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "exhausted", summaries[0].Outcome)

	attempts, err := store.AttemptsFor(ctx, session.ID)
	require.NoError(t, err)
	// Attempt rows are replaced, not duplicated.
	assert.Len(t, attempts, 2)
}

func TestAttemptsForFlattensExecutions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := sampleSession()
	require.NoError(t, store.Save(ctx, session))

	attempts, err := store.AttemptsFor(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	// An attempt with no executions records why it never ran.
	assert.Equal(t, 1, attempts[0].Seq)
	assert.Equal(t, "sanitize_empty", attempts[0].Classification)
	assert.False(t, attempts[0].Healed)

	// The healed attempt stores its final execution.
	assert.Equal(t, 2, attempts[1].Seq)
	assert.Equal(t, string(runner.FailureNone), attempts[1].Classification)
	assert.Equal(t, "200\n", attempts[1].Stdout)
	assert.True(t, attempts[1].Healed)
	assert.Contains(t, attempts[1].HealDetail, "Successfully installed")
}

func TestOpenSessionStoreRequiresPath(t *testing.T) {
	_, err := OpenSessionStore("")
	assert.Error(t, err)
}
