package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/schema"
	"github.com/chattmt/chattmt/internal/shared/llmutils"
)

// rewriteResponse is the strict shape the rewrite prompt asks for.
type rewriteResponse struct {
	IsAmbiguous    bool                `json:"is_ambiguous"`
	RewrittenQuery string              `json:"rewritten_query"`
	ContextUsage   schema.ContextUsage `json:"context_usage"`
}

// Rewrite resolves pronouns and references in query against the light
// context window, flags ambiguity and decides which memory fields later
// stages need. An unparsable oracle response falls back to treating the
// query as already clear; only transport failures surface as errors.
func Rewrite(
	ctx context.Context,
	oracle schema.LLMProvider,
	query string,
	light []schema.Message,
	summary *schema.SessionSummary,
	stage config.StageConfig,
) (schema.RewriteResult, error) {
	prompt := buildRewritePrompt(query, light, summary)

	raw, err := oracle.Complete(ctx, []schema.PromptMessage{
		schema.SystemPrompt(prompt),
		schema.UserPrompt("Output JSON:"),
	}, schema.ChatOptions{Temperature: stage.Temperature, MaxTokens: stage.MaxTokens})
	if err != nil {
		return schema.RewriteResult{}, fmt.Errorf("rewrite call: %w", err)
	}

	result := schema.RewriteResult{
		OriginalQuery:      query,
		ReferencedMessages: []schema.Message{},
	}

	var resp rewriteResponse
	if err := llmutils.ExtractJSON(raw, &resp); err != nil {
		slog.Warn("unparsable rewrite response, treating query as clear",
			"err", err, "raw", llmutils.Truncate(raw, 200))
		return result, nil
	}

	result.IsAmbiguous = resp.IsAmbiguous
	result.ContextUsage = resp.ContextUsage

	// A rewrite that parrots the original resolved nothing.
	if rewritten := strings.TrimSpace(resp.RewrittenQuery); rewritten != "" && rewritten != query {
		result.RewrittenQuery = rewritten
	}
	if resp.IsAmbiguous {
		result.ReferencedMessages = append([]schema.Message{}, light...)
	}

	slog.Debug("rewrite complete",
		"ambiguous", result.IsAmbiguous,
		"rewritten", result.RewrittenQuery != "")
	return result, nil
}

func buildRewritePrompt(query string, light []schema.Message, summary *schema.SessionSummary) string {
	var b strings.Builder
	b.WriteString(`You are a query understanding assistant. Your tasks:
1. Detect whether the query is AMBIGUOUS (pronouns or references that need resolution).
2. If ambiguous, rewrite it by resolving references from the RECENT CONVERSATION.
3. Decide which session-memory fields the answer will need.

`)

	if len(light) > 0 {
		fmt.Fprintf(&b, "RECENT CONVERSATION (last %d messages):\n%s\n", len(light), transcript(light))
	} else {
		b.WriteString("RECENT CONVERSATION: (empty - first message in session)\n")
	}

	if summary != nil {
		b.WriteString("\nSESSION SUMMARY (for reference):\n")
		b.WriteString(summary.PromptText())
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nCURRENT USER QUERY: %q\n", query)

	b.WriteString(`
DECISION RULES:
- is_ambiguous is true when the query leans on prior context: pronouns
  ("it", "that", "them"), vague references ("the above", "the same",
  "like before"), or bare continuations ("continue", "next step").
- is_ambiguous is false for self-contained queries and new topics.
- rewritten_query: the resolved query when ambiguity can be resolved from
  the RECENT CONVERSATION; null when it cannot or when nothing is ambiguous.
- context_usage flags: set a flag true only when that memory field is
  needed to answer (use_current_goal for "where we left off", use_todos for
  task queries, use_decisions for past choices, use_key_facts for specific
  facts, use_user_profile for personalized advice, use_topics for "what did
  we discuss", use_open_questions for outstanding questions).

OUTPUT FORMAT (JSON only, no other text):
{"is_ambiguous": true/false, "rewritten_query": "..." or null,
 "context_usage": {"use_user_profile": false, "use_current_goal": false,
  "use_topics": false, "use_key_facts": false, "use_decisions": false,
  "use_open_questions": false, "use_todos": false}}

EXAMPLES:
Query "What about it?" after discussing FastAPI ->
{"is_ambiguous": true, "rewritten_query": "What about FastAPI?", "context_usage": {all false}}
Query "Continue where we left off" with empty recent conversation ->
{"is_ambiguous": true, "rewritten_query": null, "context_usage": {"use_current_goal": true, "use_topics": true, "use_todos": true, rest false}}
Query "What is Flask?" ->
{"is_ambiguous": false, "rewritten_query": null, "context_usage": {all false}}

Now analyze the CURRENT USER QUERY and output ONLY valid JSON.`)
	return b.String()
}
