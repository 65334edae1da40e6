package schema

import (
	"fmt"
	"strings"
)

// UserProfile captures durable facts about the user extracted during
// summarization. Always embedded in a summary; empty fields render as
// empty lists or omitted text.
type UserProfile struct {
	Preferences []string `json:"preferences"`
	Constraints []string `json:"constraints"`
	Background  string   `json:"background,omitempty"`
}

// SessionSummary is the structured long-term memory of a session. Only the
// summarization and compression steps produce one; every other component
// treats it as read-only. Once a session has a non-nil summary it is never
// reset to nil, only replaced.
type SessionSummary struct {
	UserProfile   UserProfile `json:"user_profile"`
	CurrentGoal   string      `json:"current_goal,omitempty"`
	Topics        []string    `json:"topics"`
	KeyFacts      []string    `json:"key_facts"`
	Decisions     []string    `json:"decisions"`
	OpenQuestions []string    `json:"open_questions"`
	Todos         []string    `json:"todos"`
}

// Normalize replaces nil slices with empty ones so a persisted summary
// round-trips as empty lists, never null.
func (s *SessionSummary) Normalize() {
	if s.UserProfile.Preferences == nil {
		s.UserProfile.Preferences = []string{}
	}
	if s.UserProfile.Constraints == nil {
		s.UserProfile.Constraints = []string{}
	}
	if s.Topics == nil {
		s.Topics = []string{}
	}
	if s.KeyFacts == nil {
		s.KeyFacts = []string{}
	}
	if s.Decisions == nil {
		s.Decisions = []string{}
	}
	if s.OpenQuestions == nil {
		s.OpenQuestions = []string{}
	}
	if s.Todos == nil {
		s.Todos = []string{}
	}
}

// PromptText renders the populated summary fields as plain text, one field
// per line with list fields indented. Used both for token estimation and
// for the summarization/compression prompts.
func (s *SessionSummary) PromptText() string {
	var lines []string

	if len(s.UserProfile.Preferences) > 0 {
		lines = append(lines, "Preferences: "+strings.Join(s.UserProfile.Preferences, ", "))
	}
	if len(s.UserProfile.Constraints) > 0 {
		lines = append(lines, "Constraints: "+strings.Join(s.UserProfile.Constraints, ", "))
	}
	if s.UserProfile.Background != "" {
		lines = append(lines, "Background: "+s.UserProfile.Background)
	}
	if s.CurrentGoal != "" {
		lines = append(lines, "Goal: "+s.CurrentGoal)
	}
	if len(s.Topics) > 0 {
		lines = append(lines, "Topics: "+strings.Join(s.Topics, ", "))
	}

	for _, section := range []struct {
		label string
		items []string
	}{
		{"Key Facts", s.KeyFacts},
		{"Decisions", s.Decisions},
		{"Open Questions", s.OpenQuestions},
		{"TODOs", s.Todos},
	} {
		if len(section.items) == 0 {
			continue
		}
		lines = append(lines, section.label+":")
		for _, item := range section.items {
			lines = append(lines, fmt.Sprintf("  - %s", item))
		}
	}

	return strings.Join(lines, "\n")
}

// ContextUsage flags which summary fields the current turn's answer needs
// pulled from memory. Produced by the rewrite step, consumed by the
// context assembler.
type ContextUsage struct {
	UserProfile   bool `json:"use_user_profile"`
	CurrentGoal   bool `json:"use_current_goal"`
	Topics        bool `json:"use_topics"`
	KeyFacts      bool `json:"use_key_facts"`
	Decisions     bool `json:"use_decisions"`
	OpenQuestions bool `json:"use_open_questions"`
	Todos         bool `json:"use_todos"`
}
