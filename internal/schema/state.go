package schema

import "time"

// SessionState is the full durable state of one conversation. It is owned
// exclusively by the session store; other components read it through the
// store's accessors and mutate it only through the store's operations.
//
// RawMessages grows by exactly two entries per recorded turn and is
// truncated to the most recent keep-recent-N entries right after a
// summarization event. SummarizedUpToTurn is zero until the first
// summarization fires (a summarization can only happen after at least one
// recorded turn, so zero is unambiguous).
type SessionState struct {
	ID                 string          `json:"id"`
	RawMessages        []Message       `json:"raw_messages"`
	Summary            *SessionSummary `json:"summary,omitempty"`
	SummarizedUpToTurn int             `json:"summarized_up_to_turn,omitempty"`
	TotalTurns         int             `json:"total_turns"`
	ClarificationCount int             `json:"clarification_count"`
	CreatedAt          time.Time       `json:"created_at"`
	LastUpdated        time.Time       `json:"last_updated"`
}

// Normalize replaces nil collections with empty ones so that a state
// round-trips through JSON losslessly.
func (s *SessionState) Normalize() {
	if s.RawMessages == nil {
		s.RawMessages = []Message{}
	}
	if s.Summary != nil {
		s.Summary.Normalize()
	}
}

// Clone returns a deep copy of the state. Callers receive snapshots, never
// aliases into store-owned slices.
func (s *SessionState) Clone() SessionState {
	out := *s
	out.RawMessages = make([]Message, len(s.RawMessages))
	copy(out.RawMessages, s.RawMessages)
	if s.Summary != nil {
		sum := *s.Summary
		sum.UserProfile.Preferences = append([]string(nil), s.Summary.UserProfile.Preferences...)
		sum.UserProfile.Constraints = append([]string(nil), s.Summary.UserProfile.Constraints...)
		sum.Topics = append([]string(nil), s.Summary.Topics...)
		sum.KeyFacts = append([]string(nil), s.Summary.KeyFacts...)
		sum.Decisions = append([]string(nil), s.Summary.Decisions...)
		sum.OpenQuestions = append([]string(nil), s.Summary.OpenQuestions...)
		sum.Todos = append([]string(nil), s.Summary.Todos...)
		out.Summary = &sum
	}
	return out
}
