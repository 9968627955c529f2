package framework

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// EventType categorizes telemetry events emitted by the repair loop.
type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventSessionFinish EventType = "session_finish"
	EventGenerating    EventType = "generating"
	EventSanitizing    EventType = "sanitizing"
	EventExecuting     EventType = "executing"
	EventHealing       EventType = "healing"
	EventAttemptFinish EventType = "attempt_finish"
	EventScriptOutput  EventType = "script_output"
)

// Event captures structured telemetry data for one loop transition.
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Attempt   int                    `json:"attempt,omitempty"`
	Iteration int                    `json:"iteration,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Telemetry receives loop events. The controller emits through this
// interface so the plain CLI, the TUI, and tests can all observe the same
// stream without the loop knowing about any of them.
type Telemetry interface {
	Emit(event Event)
}

// NopTelemetry discards events.
type NopTelemetry struct{}

// Emit drops the event.
func (NopTelemetry) Emit(Event) {}

// MultiplexTelemetry broadcasts events to multiple sinks.
type MultiplexTelemetry struct {
	Sinks []Telemetry
}

// Emit forwards the event to all registered sinks.
func (m MultiplexTelemetry) Emit(event Event) {
	for _, s := range m.Sinks {
		s.Emit(event)
	}
}

// LoggerTelemetry emits events via the standard logger. Tiny but handy when
// debugging a session without the TUI.
type LoggerTelemetry struct {
	Logger *log.Logger
}

// Emit logs the event.
func (t LoggerTelemetry) Emit(event Event) {
	logger := t.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[%s] session=%s attempt=%d iter=%d msg=%s\n",
		event.Type, event.SessionID, event.Attempt, event.Iteration, event.Message)
}

// JSONFileTelemetry writes events as newline-delimited JSON so external
// tools can tail a session in real time.
type JSONFileTelemetry struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewJSONFileTelemetry opens (or creates) the events file.
func NewJSONFileTelemetry(path string) (*JSONFileTelemetry, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONFileTelemetry{file: f, enc: json.NewEncoder(f)}, nil
}

// Emit writes the JSON record.
func (j *JSONFileTelemetry) Emit(event Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.enc != nil {
		_ = j.enc.Encode(event)
	}
}

// Close releases the file handle.
func (j *JSONFileTelemetry) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file != nil {
		return j.file.Close()
	}
	return nil
}
