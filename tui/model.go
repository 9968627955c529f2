// Package tui renders live repair-loop progress with Bubble Tea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/assix/software-engineer-ai-agent/framework"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	phaseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Sink adapts the telemetry interface onto a channel the TUI consumes.
// Emit never blocks the controller: when the buffer is full the event is
// dropped, which only costs a progress line.
type Sink struct {
	ch chan framework.Event
}

// NewSink builds a buffered telemetry sink.
func NewSink() *Sink {
	return &Sink{ch: make(chan framework.Event, 64)}
}

// Emit forwards the event to the TUI.
func (s *Sink) Emit(event framework.Event) {
	select {
	case s.ch <- event:
	default:
	}
}

// Run displays the progress view until the session finishes.
func Run(task string, sink *Sink) error {
	program := tea.NewProgram(newModel(task, sink.ch))
	_, err := program.Run()
	return err
}

type eventMsg framework.Event

// Model implements the Bubble Tea model for one session.
type Model struct {
	task    string
	events  <-chan framework.Event
	spinner spinner.Model

	lines   []string
	phase   string
	attempt int
	done    bool
	outcome string
}

func newModel(task string, events <-chan framework.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = phaseStyle
	return Model{
		task:    task,
		events:  events,
		spinner: sp,
		phase:   "starting",
	}
}

// Init starts the spinner and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return eventMsg(framework.Event{Type: framework.EventSessionFinish})
		}
		return eventMsg(event)
	}
}

// Update handles spinner ticks, loop events, and keyboard interrupts.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case eventMsg:
		m.apply(framework.Event(msg))
		if m.done {
			return m, tea.Quit
		}
		return m, m.waitForEvent()
	}
	return m, nil
}

func (m *Model) apply(event framework.Event) {
	if event.Attempt > 0 {
		m.attempt = event.Attempt
	}
	switch event.Type {
	case framework.EventSessionStart:
		m.phase = "composing prompt"
	case framework.EventGenerating:
		m.phase = event.Message
	case framework.EventSanitizing:
		m.phase = "sanitizing output"
	case framework.EventExecuting:
		m.phase = event.Message
	case framework.EventHealing:
		m.phase = event.Message
		m.lines = append(m.lines, phaseStyle.Render("⛨ "+event.Message))
	case framework.EventAttemptFinish:
		m.lines = append(m.lines, errStyle.Render(fmt.Sprintf("✗ attempt %d failed: %s", event.Attempt, firstLine(event.Message))))
	case framework.EventScriptOutput:
		// stdout is printed after the program exits
	case framework.EventSessionFinish:
		m.done = true
		m.outcome = event.Message
	}
}

// View renders the progress feed, current phase, and final outcome.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("swea") + dimStyle.Render(" · "+m.task) + "\n\n")
	for _, line := range m.lines {
		b.WriteString(line + "\n")
	}
	if m.done {
		switch m.outcome {
		case "succeeded":
			b.WriteString(okStyle.Render("✓ task solved") + "\n")
		default:
			b.WriteString(errStyle.Render("✗ "+m.outcome) + "\n")
		}
	} else {
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), phaseStyle.Render(m.phase)))
	}
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) == 0 {
		return s
	}
	// The root cause of a Python traceback is its last line.
	return lines[len(lines)-1]
}
