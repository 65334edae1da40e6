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

// maxClarifyingQuestions bounds how many questions one clarification
// request may carry.
const maxClarifyingQuestions = 3

type clarifyResponse struct {
	NeedsClarification  bool     `json:"needs_clarification"`
	ClarifyingQuestions []string `json:"clarifying_questions"`
}

// Decide asks the oracle whether the query, given the augmented context,
// can be answered or needs clarification first. An unparsable response
// falls back to answering; only transport failures surface as errors.
// Question lists longer than three entries are truncated, and a negative
// decision always carries an empty list.
func Decide(
	ctx context.Context,
	oracle schema.LLMProvider,
	query string,
	augmented schema.AugmentedContext,
	stage config.StageConfig,
) (schema.ClarificationResult, error) {
	prompt := buildClarifyPrompt(query, augmented)

	raw, err := oracle.Complete(ctx, []schema.PromptMessage{
		schema.SystemPrompt(prompt),
		schema.UserPrompt("Output JSON:"),
	}, schema.ChatOptions{Temperature: stage.Temperature, MaxTokens: stage.MaxTokens})
	if err != nil {
		return schema.ClarificationResult{}, fmt.Errorf("clarification call: %w", err)
	}

	var resp clarifyResponse
	if err := llmutils.ExtractJSON(raw, &resp); err != nil {
		slog.Warn("unparsable clarification response, biasing toward answering",
			"err", err, "raw", llmutils.Truncate(raw, 200))
		return schema.ClarificationResult{ClarifyingQuestions: []string{}}, nil
	}

	questions := resp.ClarifyingQuestions
	if !resp.NeedsClarification {
		questions = nil
	} else if len(questions) > maxClarifyingQuestions {
		slog.Warn("truncating clarifying questions", "got", len(questions))
		questions = questions[:maxClarifyingQuestions]
	}
	if questions == nil {
		questions = []string{}
	}

	return schema.ClarificationResult{
		NeedsClarification:  resp.NeedsClarification,
		ClarifyingQuestions: questions,
	}, nil
}

func buildClarifyPrompt(query string, augmented schema.AugmentedContext) string {
	var b strings.Builder
	b.WriteString(`You are a clarification decision assistant. Decide whether there is ENOUGH
INFORMATION to answer the user's query, or whether clarifying questions are
required first.

IMPORTANT: Default to answering. Ask only when CRITICAL information is missing.

AVAILABLE CONTEXT:
`)
	if augmented.FinalContext != "" {
		b.WriteString(augmented.FinalContext)
	} else {
		b.WriteString("(empty)")
	}
	fmt.Fprintf(&b, "\n\nUSER QUERY: %q\n", query)

	b.WriteString(`
DECISION RULES:
- Informational queries ("What is...", "How does...", "Why...", "Explain...")
  are general knowledge: ALWAYS answer, never ask for clarification.
- needs_clarification is true ONLY for:
  * imperative commands with missing specifics ("Set up the database" ->
    which database?, "Fix the bug" -> what bug?, "Deploy the app" -> where?);
  * possessive references to things absent from the context ("fix my code",
    "continue with the tutorial" when none was mentioned);
  * personalized recommendations without user background ("which framework
    should I use?" with no project details in the context).
- Never ask about anything the context already answers.
- When asking, ask 1-3 specific, actionable questions.

Contrast: "How do I set up a database?" -> answer. "Set up the database"
with no database in context -> clarify.

OUTPUT FORMAT (JSON only, no other text):
{"needs_clarification": true/false, "clarifying_questions": ["..."] or []}`)
	return b.String()
}
