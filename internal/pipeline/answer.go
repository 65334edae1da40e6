package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/schema"
)

// Answer generates the final response to query from the augmented context.
// Unlike the structured stages it expects free text, so there is no parse
// fallback; any error is a transport failure.
func Answer(
	ctx context.Context,
	oracle schema.LLMProvider,
	query string,
	augmented schema.AugmentedContext,
	stage config.StageConfig,
) (string, error) {
	prompt := buildAnswerPrompt(augmented)

	raw, err := oracle.Complete(ctx, []schema.PromptMessage{
		schema.SystemPrompt(prompt),
		schema.UserPrompt(query),
	}, schema.ChatOptions{Temperature: stage.Temperature, MaxTokens: stage.MaxTokens})
	if err != nil {
		return "", fmt.Errorf("answer call: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

func buildAnswerPrompt(augmented schema.AugmentedContext) string {
	var b strings.Builder
	b.WriteString(`You are a helpful assistant with access to conversation history and user memory.

AVAILABLE CONTEXT:
`)
	if augmented.FinalContext != "" {
		b.WriteString(augmented.FinalContext)
	} else {
		b.WriteString("(empty - new session)")
	}

	b.WriteString(`

RULES:
1. Read the context first and use what it already contains.
2. Never ask for information the context already provides (preferences,
   topics, decisions, todos).
3. Reference context explicitly when it informs the answer ("Based on your
   preference for...", "As we discussed...").
4. Be conversational and concrete; format with markdown when it helps.

Answer the user's query using the context above.`)
	return b.String()
}
