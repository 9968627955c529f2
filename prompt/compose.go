// Package prompt builds generation requests for the model backend.
package prompt

import (
	"fmt"
	"strings"
)

// Previous carries the single prior attempt the repair prompt references.
// Only the immediately preceding attempt is ever included; older history
// would grow the prompt without bound for no measured benefit.
type Previous struct {
	Script    string
	ErrorText string
}

// Composer renders first-shot and repair prompts. ErrorTextCap bounds how
// much of a failure trace is forwarded to the model.
type Composer struct {
	ErrorTextCap int
}

// NewComposer returns a composer with the default trace cap.
func NewComposer() *Composer {
	return &Composer{ErrorTextCap: 4096}
}

// Compose renders the prompt for the next generation. prev is nil on the
// first attempt. The full previous script is always included, never a diff:
// the model has no editing state between attempts and must regenerate a
// complete replacement.
func (c *Composer) Compose(task string, prev *Previous) string {
	if prev == nil {
		return fmt.Sprintf(
			"Write a Python script to %s. "+
				"Rules: Return ONLY valid Python code in a single code block. "+
				"The script must be self-contained. "+
				"Do NOT use 'pip install'. Use standard libraries where possible.",
			task)
	}
	return fmt.Sprintf(
		"You are a Senior Python Engineer. The following script failed to run.\n"+
			"TASK: %s\n\n"+
			"--- BROKEN CODE ---\n%s\n\n"+
			"--- ERROR LOG ---\n%s\n\n"+
			"INSTRUCTIONS: Rewrite the code to fix the error. "+
			"Return ONLY the complete, corrected Python script in a single code block.",
		task, strings.TrimRight(prev.Script, "\n"), c.capError(prev.ErrorText))
}

// capError keeps the tail of the trace; the root-cause line of a Python
// traceback is at the bottom.
func (c *Composer) capError(trace string) string {
	trace = strings.TrimSpace(trace)
	if trace == "" {
		return "(no error output captured)"
	}
	limit := c.ErrorTextCap
	if limit <= 0 {
		limit = 4096
	}
	if len(trace) <= limit {
		return trace
	}
	return "...(truncated)\n" + trace[len(trace)-limit:]
}
