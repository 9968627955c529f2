package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeFirstAttempt(t *testing.T) {
	c := NewComposer()
	p := c.Compose("compute 2+2 and print it", nil)
	assert.Contains(t, p, "compute 2+2 and print it")
	assert.Contains(t, p, "ONLY valid Python code")
	assert.NotContains(t, p, "BROKEN CODE")
}

func TestComposeRepairIncludesFullScriptAndError(t *testing.T) {
	c := NewComposer()
	prev := &Previous{
		Script:    "import foo\nfoo.bar()\n",
		ErrorText: "Traceback (most recent call last):\nAttributeError: module 'foo' has no attribute 'bar'",
	}
	p := c.Compose("do the thing", prev)
	assert.Contains(t, p, "TASK: do the thing")
	assert.Contains(t, p, "import foo\nfoo.bar()")
	assert.Contains(t, p, "AttributeError")
	assert.Contains(t, p, "BROKEN CODE")
	assert.Contains(t, p, "ERROR LOG")
}

func TestComposeCapsErrorText(t *testing.T) {
	c := &Composer{ErrorTextCap: 100}
	prev := &Previous{
		Script:    "x = 1\n",
		ErrorText: strings.Repeat("z", 90) + "\nroot cause line",
	}
	p := c.Compose("task", prev)
	assert.Contains(t, p, "root cause line")
	assert.Contains(t, p, "(truncated)")
	// The prompt keeps the tail, where the root cause lives.
	assert.Less(t, strings.Count(p, "z"), 90)
}

func TestComposeEmptyErrorText(t *testing.T) {
	c := NewComposer()
	p := c.Compose("task", &Previous{Script: "x = 1\n", ErrorText: "  "})
	assert.Contains(t, p, "(no error output captured)")
}
