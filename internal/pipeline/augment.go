package pipeline

import (
	"strings"

	"github.com/chattmt/chattmt/internal/schema"
)

// Augment combines a bounded recent-message window with the summary fields
// selected by usage into one context blob. It is pure and deterministic:
// identical inputs yield byte-identical output, it makes no oracle calls
// and has no side effects.
//
// Selected fields are rendered in a fixed order (profile, goal, topics,
// facts, decisions, open questions, todos) under stable labels, and
// MemoryFieldsUsed records them in that same order. Empty fields are
// skipped even when selected. Either half of the final blob is omitted
// entirely when empty.
func Augment(
	recent []schema.Message,
	usage schema.ContextUsage,
	summary *schema.SessionSummary,
	maxRecent int,
) schema.AugmentedContext {
	if maxRecent > 0 && len(recent) > maxRecent {
		recent = recent[len(recent)-maxRecent:]
	}
	clamped := make([]schema.Message, len(recent))
	copy(clamped, recent)

	var fields []string
	var blocks []string

	if summary != nil {
		if usage.UserProfile {
			if block := profileBlock(summary.UserProfile); block != "" {
				fields = append(fields, "user_profile")
				blocks = append(blocks, block)
			}
		}
		if usage.CurrentGoal && summary.CurrentGoal != "" {
			fields = append(fields, "current_goal")
			blocks = append(blocks, "CURRENT GOAL: "+summary.CurrentGoal)
		}
		if usage.Topics && len(summary.Topics) > 0 {
			fields = append(fields, "topics")
			blocks = append(blocks, "TOPICS DISCUSSED: "+strings.Join(summary.Topics, ", "))
		}
		if usage.KeyFacts && len(summary.KeyFacts) > 0 {
			fields = append(fields, "key_facts")
			blocks = append(blocks, "KEY FACTS:\n"+bulletList(summary.KeyFacts))
		}
		if usage.Decisions && len(summary.Decisions) > 0 {
			fields = append(fields, "decisions")
			blocks = append(blocks, "DECISIONS MADE:\n"+bulletList(summary.Decisions))
		}
		if usage.OpenQuestions && len(summary.OpenQuestions) > 0 {
			fields = append(fields, "open_questions")
			blocks = append(blocks, "OPEN QUESTIONS:\n"+bulletList(summary.OpenQuestions))
		}
		if usage.Todos && len(summary.Todos) > 0 {
			fields = append(fields, "todos")
			blocks = append(blocks, "TODOS:\n"+bulletList(summary.Todos))
		}
	}

	memoryContext := strings.Join(blocks, "\n\n")

	var finalParts []string
	if len(clamped) > 0 {
		finalParts = append(finalParts, "RECENT CONVERSATION:\n"+transcript(clamped))
	}
	if memoryContext != "" {
		finalParts = append(finalParts, "MEMORY CONTEXT:\n"+memoryContext)
	}

	if fields == nil {
		fields = []string{}
	}
	return schema.AugmentedContext{
		RecentMessages:   clamped,
		MemoryFieldsUsed: fields,
		MemoryContext:    memoryContext,
		FinalContext:     strings.Join(finalParts, "\n\n"),
	}
}

func profileBlock(p schema.UserProfile) string {
	var parts []string
	if len(p.Preferences) > 0 {
		parts = append(parts, "Preferences: "+strings.Join(p.Preferences, ", "))
	}
	if len(p.Constraints) > 0 {
		parts = append(parts, "Constraints: "+strings.Join(p.Constraints, ", "))
	}
	if p.Background != "" {
		parts = append(parts, "Background: "+p.Background)
	}
	if len(parts) == 0 {
		return ""
	}
	return "USER PROFILE:\n" + strings.Join(parts, "\n")
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func transcript(messages []schema.Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = strings.ToUpper(string(m.Role)) + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}
