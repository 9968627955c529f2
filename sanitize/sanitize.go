// Package sanitize turns raw model output into an executable script body.
// It is strictly syntactic: markdown fences, explanatory prose, and
// hallucinated shell commands are removed, but the code itself is never
// rewritten.
package sanitize

import (
	"regexp"
	"strings"
)

// Verdict classifies what cleanup produced. The controller must handle all
// three cases explicitly; model output carries no structural guarantees.
type Verdict int

const (
	// VerdictScript means a non-empty script body was extracted.
	VerdictScript Verdict = iota
	// VerdictEmpty means nothing executable survived cleanup.
	VerdictEmpty
	// VerdictUnparsable means fence markers were present but could not be
	// paired, so no block could be reliably extracted.
	VerdictUnparsable
)

func (v Verdict) String() string {
	switch v {
	case VerdictScript:
		return "script"
	case VerdictEmpty:
		return "empty"
	case VerdictUnparsable:
		return "unparsable"
	default:
		return "unknown"
	}
}

// Result is the outcome of sanitizing one raw model response.
type Result struct {
	Verdict Verdict
	Script  string
	// StrippedInstalls lists package names found on removed install-command
	// lines. They feed the proactive-install policy; the lines themselves
	// never reach the interpreter.
	StrippedInstalls []string
}

var (
	fenceBlock  = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\n?(.*?)```")
	installLine = regexp.MustCompile(`^(?:sudo\s+)?(?:python3?\s+-m\s+)?pip3?\s+install\s+(.+)$`)
)

// Prose lead-ins models wrap around code despite being told not to.
var proseLeadIns = []string{"here is", "here's", "sure,", "to run", "this script"}

// Clean extracts the script body from raw model output.
func Clean(raw string) Result {
	body, ok := extractFenced(raw)
	if !ok {
		return Result{Verdict: VerdictUnparsable}
	}

	var kept []string
	var installs []string
	for _, line := range strings.Split(body, "\n") {
		stripped := strings.TrimSpace(line)
		if m := installLine.FindStringSubmatch(stripped); m != nil {
			installs = append(installs, parseInstallArgs(m[1])...)
			continue
		}
		if strings.HasPrefix(stripped, "python ") || strings.HasPrefix(stripped, "python3 ") {
			continue
		}
		if isProse(stripped) {
			continue
		}
		kept = append(kept, line)
	}

	script := strings.Join(kept, "\n")
	if strings.TrimSpace(script) == "" {
		return Result{Verdict: VerdictEmpty, StrippedInstalls: installs}
	}
	return Result{Verdict: VerdictScript, Script: strings.TrimSpace(script) + "\n", StrippedInstalls: installs}
}

// extractFenced returns the first fenced block, or the whole text when no
// fence is present. Unbalanced fences are unrecoverable.
func extractFenced(raw string) (string, bool) {
	if m := fenceBlock.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if strings.Contains(raw, "```") {
		return "", false
	}
	return raw, true
}

func isProse(line string) bool {
	lower := strings.ToLower(line)
	for _, lead := range proseLeadIns {
		if strings.HasPrefix(lower, lead) {
			return true
		}
	}
	return false
}

// parseInstallArgs pulls package names out of an install command tail,
// ignoring option flags.
func parseInstallArgs(tail string) []string {
	var pkgs []string
	for _, tok := range strings.Fields(tail) {
		if strings.HasPrefix(tok, "-") {
			continue
		}
		pkgs = append(pkgs, tok)
	}
	return pkgs
}
