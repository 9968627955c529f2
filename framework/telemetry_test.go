package framework

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	events []Event
}

func (c *captureSink) Emit(event Event) {
	c.events = append(c.events, event)
}

func TestMultiplexTelemetryBroadcasts(t *testing.T) {
	a := &captureSink{}
	b := &captureSink{}
	m := MultiplexTelemetry{Sinks: []Telemetry{a, b, NopTelemetry{}}}

	m.Emit(Event{Type: EventGenerating, Attempt: 1})
	m.Emit(Event{Type: EventSessionFinish})

	require.Len(t, a.events, 2)
	require.Len(t, b.events, 2)
	assert.Equal(t, EventGenerating, a.events[0].Type)
	assert.Equal(t, EventSessionFinish, b.events[1].Type)
}

func TestJSONFileTelemetryWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	sink, err := NewJSONFileTelemetry(path)
	require.NoError(t, err)

	sink.Emit(Event{Type: EventSessionStart, SessionID: "abc", Message: "task"})
	sink.Emit(Event{Type: EventAttemptFinish, SessionID: "abc", Attempt: 1, Message: "runtime_error"})
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		lines = append(lines, ev)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 2)
	assert.Equal(t, EventSessionStart, lines[0].Type)
	assert.Equal(t, "abc", lines[0].SessionID)
	assert.Equal(t, 1, lines[1].Attempt)
	assert.Equal(t, "runtime_error", lines[1].Message)
}
