package schema

// RewriteResult is the outcome of the query rewrite step. RewrittenQuery is
// non-empty only when the query was ambiguous and resolution succeeded from
// the light context window; a rewrite identical to the original query is
// discarded during parsing.
type RewriteResult struct {
	OriginalQuery      string       `json:"original_query"`
	IsAmbiguous        bool         `json:"is_ambiguous"`
	RewrittenQuery     string       `json:"rewritten_query,omitempty"`
	ReferencedMessages []Message    `json:"referenced_messages"`
	ContextUsage       ContextUsage `json:"context_usage"`
}

// EffectiveQuery returns the rewritten query when one exists, otherwise the
// original. All pipeline stages after the rewrite operate on this value.
func (r RewriteResult) EffectiveQuery() string {
	if r.RewrittenQuery != "" {
		return r.RewrittenQuery
	}
	return r.OriginalQuery
}

// AugmentedContext is the deterministic combination of a recent-message
// window and the summary fields selected by ContextUsage.
type AugmentedContext struct {
	RecentMessages   []Message `json:"recent_messages"`
	MemoryFieldsUsed []string  `json:"memory_fields_used"`
	MemoryContext    string    `json:"memory_context"`
	FinalContext     string    `json:"final_augmented_context"`
}

// ClarificationResult is the outcome of the clarify-or-answer decision.
// When NeedsClarification is false the question list is always empty.
type ClarificationResult struct {
	NeedsClarification  bool     `json:"needs_clarification"`
	ClarifyingQuestions []string `json:"clarifying_questions"`
}

// PipelineResult aggregates every stage's output for one processed turn.
// Response holds either the final answer or the formatted clarifying
// questions, depending on NeedsClarification.
type PipelineResult struct {
	Rewrite            RewriteResult
	Augmented          AugmentedContext
	Clarification      ClarificationResult
	NeedsClarification bool
	Response           string
	WasSummarized      bool
}
