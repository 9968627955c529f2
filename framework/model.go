package framework

import "context"

// LanguageModel is the single capability the repair loop needs from a model
// backend: turn a prompt into raw text. Implementations may talk to Ollama,
// a remote API, or a test stub. The returned text carries no structural
// guarantees; callers are expected to sanitize it.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string, options *LLMOptions) (*LLMResponse, error)
}

// LLMOptions carries per-request generation knobs.
type LLMOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Stop        []string
}

// LLMResponse is the raw completion returned by a backend.
type LLMResponse struct {
	Text         string
	FinishReason string
	Usage        map[string]int
}
