package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/schema"
	"github.com/chattmt/chattmt/internal/shared/llmutils"
)

// summaryResponse is the strict shape the summarization and compression
// prompts ask the oracle to emit. Anything that does not decode into this
// counts as a parse failure and the previous summary stands.
type summaryResponse struct {
	UserProfile struct {
		Preferences []string `json:"preferences"`
		Constraints []string `json:"constraints"`
		Background  string   `json:"background"`
	} `json:"user_profile"`
	CurrentGoal   string   `json:"current_goal"`
	Topics        []string `json:"topics"`
	KeyFacts      []string `json:"key_facts"`
	Decisions     []string `json:"decisions"`
	OpenQuestions []string `json:"open_questions"`
	Todos         []string `json:"todos"`
}

func (r summaryResponse) toSummary() *schema.SessionSummary {
	sum := &schema.SessionSummary{
		UserProfile: schema.UserProfile{
			Preferences: r.UserProfile.Preferences,
			Constraints: r.UserProfile.Constraints,
			Background:  r.UserProfile.Background,
		},
		CurrentGoal:   r.CurrentGoal,
		Topics:        r.Topics,
		KeyFacts:      r.KeyFacts,
		Decisions:     r.Decisions,
		OpenQuestions: r.OpenQuestions,
		Todos:         r.Todos,
	}
	sum.Normalize()
	return sum
}

// summarizeLocked converts the full raw log into a new summary, truncates
// the log to the configured keep-recent window and advances
// SummarizedUpToTurn. Caller holds s.mu.
func (s *Session) summarizeLocked(ctx context.Context) bool {
	newSummary, err := summarize(ctx, s.oracle, s.state.RawMessages, s.state.Summary, s.stage)
	if err != nil {
		slog.Warn("summarization failed, keeping previous summary",
			"session", s.state.ID, "err", err)
		return false
	}

	keep := s.memory.KeepRecentN
	if len(s.state.RawMessages) > keep {
		tail := make([]schema.Message, keep)
		copy(tail, s.state.RawMessages[len(s.state.RawMessages)-keep:])
		s.state.RawMessages = tail
	}

	s.state.Summary = newSummary
	s.state.SummarizedUpToTurn = s.state.TotalTurns
	s.touchLocked()

	slog.Info("summarization complete",
		"session", s.state.ID,
		"kept_messages", len(s.state.RawMessages),
		"summarized_up_to_turn", s.state.SummarizedUpToTurn)
	return true
}

// compressLocked shrinks the existing summary without re-reading the raw
// log. The log is left untouched. Caller holds s.mu.
func (s *Session) compressLocked(ctx context.Context) bool {
	compressed, err := compress(ctx, s.oracle, s.state.Summary, s.stage)
	if err != nil {
		slog.Warn("compression failed, keeping previous summary",
			"session", s.state.ID, "err", err)
		return false
	}

	s.state.Summary = compressed
	s.touchLocked()

	slog.Info("compression complete", "session", s.state.ID)
	return true
}

// summarize asks the oracle to distill messages (merged with the existing
// summary, if any) into a fresh structured summary.
func summarize(
	ctx context.Context,
	oracle schema.LLMProvider,
	messages []schema.Message,
	existing *schema.SessionSummary,
	stage config.StageConfig,
) (*schema.SessionSummary, error) {
	prompt := buildSummarizePrompt(messages, existing)

	raw, err := oracle.Complete(ctx, []schema.PromptMessage{
		schema.SystemPrompt(prompt),
		schema.UserPrompt("Summarize the conversation above as JSON."),
	}, schema.ChatOptions{Temperature: stage.Temperature, MaxTokens: stage.MaxTokens})
	if err != nil {
		return nil, fmt.Errorf("summarization call: %w", err)
	}

	var resp summaryResponse
	if err := llmutils.ExtractJSON(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	return resp.toSummary(), nil
}

// compress asks the oracle to shrink an existing summary. The raw message
// log is deliberately not included.
func compress(
	ctx context.Context,
	oracle schema.LLMProvider,
	summary *schema.SessionSummary,
	stage config.StageConfig,
) (*schema.SessionSummary, error) {
	prompt := buildCompressPrompt(summary)

	raw, err := oracle.Complete(ctx, []schema.PromptMessage{
		schema.SystemPrompt(prompt),
		schema.UserPrompt("Compress the summary above as JSON."),
	}, schema.ChatOptions{Temperature: stage.Temperature, MaxTokens: stage.MaxTokens})
	if err != nil {
		return nil, fmt.Errorf("compression call: %w", err)
	}

	var resp summaryResponse
	if err := llmutils.ExtractJSON(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse compressed summary: %w", err)
	}
	return resp.toSummary(), nil
}

const summaryShape = `{
  "user_profile": {"preferences": [...], "constraints": [...], "background": "... or \"\""},
  "current_goal": "what the user is trying to achieve",
  "topics": [...],
  "key_facts": [...],
  "decisions": [...],
  "open_questions": [...],
  "todos": [...]
}`

func buildSummarizePrompt(messages []schema.Message, existing *schema.SessionSummary) string {
	var b strings.Builder
	b.WriteString("You are an expert at summarizing conversations. " +
		"Analyze the conversation below and extract structured information.\n")

	if existing != nil {
		b.WriteString("\nEXISTING SUMMARY (merge its content into your output):\n")
		b.WriteString(existing.PromptText())
		b.WriteString("\n")
	}

	b.WriteString("\nCONVERSATION TO SUMMARIZE:\n")
	b.WriteString(formatTranscript(messages))
	b.WriteString("\n\nReturn ONLY a JSON object with these fields:\n")
	b.WriteString(summaryShape)
	b.WriteString("\nReturn ONLY the JSON, no other text.")
	return b.String()
}

func buildCompressPrompt(summary *schema.SessionSummary) string {
	var b strings.Builder
	b.WriteString("You are an expert at compressing conversation summaries.\n\n")
	b.WriteString("CURRENT SUMMARY:\n")
	b.WriteString(summary.PromptText())
	b.WriteString("\n\nRewrite this summary keeping only the most important details. " +
		"Merge overlapping items and drop redundant or stale information to reduce token usage.\n")
	b.WriteString("\nReturn ONLY a JSON object with these fields:\n")
	b.WriteString(summaryShape)
	b.WriteString("\nReturn ONLY the JSON, no other text.")
	return b.String()
}

// formatTranscript renders messages as labelled lines for prompt inclusion.
func formatTranscript(messages []schema.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, strings.ToUpper(string(m.Role))+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func (s *Session) touchLocked() {
	s.dirty = true
	s.state.LastUpdated = time.Now().UTC()
}
