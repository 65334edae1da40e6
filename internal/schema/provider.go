package schema

import "context"

// ChatOptions configures a single oracle completion request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// LLMProvider is the single narrow interface every oracle backend must
// satisfy. The rewrite, decision, answer, summarization and compression
// steps all depend only on this. Complete blocks until the provider's own
// retry policy is exhausted; callers treat the round trip as atomic.
type LLMProvider interface {
	Complete(ctx context.Context, messages []PromptMessage, opts ChatOptions) (string, error)
	DefaultModel() string
}
