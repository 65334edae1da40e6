// Package session owns one conversation's durable state: the raw message
// log, the rolling summary, the turn and clarification counters, and their
// persistence. It also decides when history must be compacted into the
// summary (see compact.go).
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/schema"
	"github.com/chattmt/chattmt/internal/tokens"
)

// Session wraps a SessionState with the mutator operations the pipeline is
// allowed to call. All methods serialize on an internal mutex; turns for
// the same session must not run concurrently, but accessors are safe from
// any goroutine (the autosave scheduler reads Dirty and State).
type Session struct {
	state  schema.SessionState
	oracle schema.LLMProvider // nil disables compaction
	memory config.MemoryConfig
	stage  config.StageConfig // summarizer oracle settings

	dirty bool
	mu    sync.Mutex
}

// newSession constructs an empty session with a fresh ID.
func newSession(oracle schema.LLMProvider, memory config.MemoryConfig, stage config.StageConfig) *Session {
	now := time.Now().UTC()
	state := schema.SessionState{
		ID:          uuid.NewString(),
		CreatedAt:   now,
		LastUpdated: now,
	}
	state.Normalize()
	return &Session{state: state, oracle: oracle, memory: memory, stage: stage}
}

// restore wraps a previously persisted state. Used only by Manager.Load.
func restore(state schema.SessionState, oracle schema.LLMProvider, memory config.MemoryConfig, stage config.StageConfig) *Session {
	state.Normalize()
	return &Session{state: state, oracle: oracle, memory: memory, stage: stage}
}

// ID returns the session's stable identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// State returns a deep copy of the current state.
func (s *Session) State() schema.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// TotalTurns returns the number of recorded turns.
func (s *Session) TotalTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalTurns
}

// ClarificationCount returns the current consecutive-clarification count.
func (s *Session) ClarificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ClarificationCount
}

// Summary returns a copy of the current summary, or nil if none exists yet.
func (s *Session) Summary() *schema.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Summary == nil {
		return nil
	}
	c := s.state.Clone()
	return c.Summary
}

// AddTurn appends a user message and an assistant message sharing one
// timestamp, and increments the turn counter. It never truncates the log;
// only summarization does that.
func (s *Session) AddTurn(userText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.state.RawMessages = append(s.state.RawMessages,
		schema.NewUserMessage(userText, now),
		schema.NewAssistantMessage(assistantText, now),
	)
	s.state.TotalTurns++
	s.state.LastUpdated = now
	s.dirty = true

	slog.Debug("recorded turn",
		"session", s.state.ID,
		"turn", s.state.TotalTurns,
		"user_chars", len(userText),
		"assistant_chars", len(assistantText))
}

// IncrementClarification bumps the consecutive-clarification counter and
// returns the new value.
func (s *Session) IncrementClarification() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ClarificationCount++
	s.state.LastUpdated = time.Now().UTC()
	s.dirty = true
	return s.state.ClarificationCount
}

// ResetClarification zeroes the counter. Called on every turn that
// produces a final answer, forced or not.
func (s *Session) ResetClarification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ClarificationCount == 0 {
		return
	}
	s.state.ClarificationCount = 0
	s.state.LastUpdated = time.Now().UTC()
	s.dirty = true
}

// RecentMessages returns up to n of the most recent messages. Shorter
// histories return what exists.
func (s *Session) RecentMessages(n int) []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tailLocked(n)
}

// LightContext is the short window used only for reference resolution.
// It is the same accessor as RecentMessages with a smaller n by
// convention; both exist so call sites document which window they mean.
func (s *Session) LightContext(n int) []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tailLocked(n)
}

func (s *Session) tailLocked(n int) []schema.Message {
	msgs := s.state.RawMessages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]schema.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Dirty reports whether the session has unsaved mutations.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// CheckAndMaybeCompact estimates the cost of the raw log and the summary
// and fires at most one of summarization or compression. It returns true
// iff either fired. Without a bound oracle the check is skipped entirely.
// Oracle or parse failures leave the existing state untouched and report
// false; the anomaly is logged, never surfaced.
func (s *Session) CheckAndMaybeCompact(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.oracle == nil {
		slog.Debug("no oracle bound, skipping compaction check", "session", s.state.ID)
		return false
	}

	rawCost := tokens.EstimateMessages(s.state.RawMessages)
	summaryCost := tokens.EstimateSummary(s.state.Summary)
	slog.Debug("compaction check",
		"session", s.state.ID,
		"turns", s.state.TotalTurns,
		"messages", len(s.state.RawMessages),
		"raw_tokens", rawCost,
		"summary_tokens", summaryCost)

	if rawCost > s.memory.RawTokenThreshold {
		slog.Info("raw log over threshold, summarizing",
			"session", s.state.ID, "raw_tokens", rawCost, "threshold", s.memory.RawTokenThreshold)
		return s.summarizeLocked(ctx)
	}

	if s.state.Summary != nil && summaryCost > s.memory.SummaryTokenThreshold {
		slog.Info("summary over threshold, compressing",
			"session", s.state.ID, "summary_tokens", summaryCost, "threshold", s.memory.SummaryTokenThreshold)
		return s.compressLocked(ctx)
	}

	return false
}
