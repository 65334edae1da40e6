package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/schema"
)

// fakeOracle replays a scripted sequence of responses.
type fakeOracle struct {
	responses []fakeResponse
	calls     int
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeOracle) Complete(_ context.Context, _ []schema.PromptMessage, _ schema.ChatOptions) (string, error) {
	if f.calls >= len(f.responses) {
		return "", fmt.Errorf("unexpected oracle call %d", f.calls)
	}
	r := f.responses[f.calls]
	f.calls++
	return r.text, r.err
}

func (f *fakeOracle) DefaultModel() string { return "fake-model" }

const validSummaryJSON = `{
  "user_profile": {"preferences": ["concise answers"], "constraints": [], "background": "Go developer"},
  "current_goal": "build a web scraper",
  "topics": ["scraping", "goroutines"],
  "key_facts": ["targets are static pages"],
  "decisions": ["use worker pool"],
  "open_questions": [],
  "todos": ["add rate limiting"]
}`

func testMemory() config.MemoryConfig {
	return config.MemoryConfig{
		RawTokenThreshold:     10000,
		SummaryTokenThreshold: 2000,
		KeepRecentN:           4,
	}
}

func TestAddTurn(t *testing.T) {
	s := newSession(nil, testMemory(), config.StageConfig{})

	s.AddTurn("hello", "hi there")
	s.AddTurn("how are you", "fine")

	if got := s.TotalTurns(); got != 2 {
		t.Errorf("expected 2 turns, got %d", got)
	}
	state := s.State()
	if len(state.RawMessages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(state.RawMessages))
	}
	if state.RawMessages[0].Role != schema.RoleUser || state.RawMessages[1].Role != schema.RoleAssistant {
		t.Errorf("unexpected role order: %s, %s", state.RawMessages[0].Role, state.RawMessages[1].Role)
	}
	// Both halves of a turn share one timestamp.
	if !state.RawMessages[0].Timestamp.Equal(*state.RawMessages[1].Timestamp) {
		t.Error("expected user and assistant messages of one turn to share a timestamp")
	}
	if !s.Dirty() {
		t.Error("expected session to be dirty after a turn")
	}
}

func TestClarificationCounter(t *testing.T) {
	s := newSession(nil, testMemory(), config.StageConfig{})

	if got := s.IncrementClarification(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := s.IncrementClarification(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	// Clarification exchanges touch the counter but never the turn log.
	if got := s.TotalTurns(); got != 0 {
		t.Errorf("expected 0 turns, got %d", got)
	}
	if got := len(s.State().RawMessages); got != 0 {
		t.Errorf("expected empty message log, got %d messages", got)
	}

	s.ResetClarification()
	if got := s.ClarificationCount(); got != 0 {
		t.Errorf("expected 0 after reset, got %d", got)
	}
}

func TestRecentMessagesWindow(t *testing.T) {
	s := newSession(nil, testMemory(), config.StageConfig{})
	for i := 0; i < 5; i++ {
		s.AddTurn(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	recent := s.RecentMessages(4)
	if len(recent) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(recent))
	}
	if recent[0].Content != "q3" || recent[3].Content != "a4" {
		t.Errorf("expected tail of log, got %q .. %q", recent[0].Content, recent[3].Content)
	}

	// Asking for more than exists returns everything.
	if got := len(s.RecentMessages(100)); got != 10 {
		t.Errorf("expected 10 messages, got %d", got)
	}

	// The returned slice is a copy.
	recent[0].Content = "mutated"
	if s.State().RawMessages[6].Content == "mutated" {
		t.Error("RecentMessages leaked the internal slice")
	}
}

func TestCompactNoOracle(t *testing.T) {
	memory := testMemory()
	memory.RawTokenThreshold = 1
	s := newSession(nil, memory, config.StageConfig{})
	s.AddTurn("a long enough question to clear any threshold", "and an answer")

	if s.CheckAndMaybeCompact(context.Background()) {
		t.Error("expected no compaction without an oracle")
	}
	if got := len(s.State().RawMessages); got != 2 {
		t.Errorf("expected message log untouched, got %d messages", got)
	}
}

func TestCompactUnderThreshold(t *testing.T) {
	oracle := &fakeOracle{}
	s := newSession(oracle, testMemory(), config.StageConfig{})
	s.AddTurn("hi", "hello")

	if s.CheckAndMaybeCompact(context.Background()) {
		t.Error("expected no compaction under threshold")
	}
	if oracle.calls != 0 {
		t.Errorf("expected no oracle calls, got %d", oracle.calls)
	}
}

func TestSummarization(t *testing.T) {
	oracle := &fakeOracle{responses: []fakeResponse{{text: validSummaryJSON}}}
	memory := testMemory()
	memory.RawTokenThreshold = 1
	s := newSession(oracle, memory, config.StageConfig{})
	for i := 0; i < 5; i++ {
		s.AddTurn(fmt.Sprintf("question number %d", i), fmt.Sprintf("answer number %d", i))
	}

	if !s.CheckAndMaybeCompact(context.Background()) {
		t.Fatal("expected summarization to fire")
	}

	state := s.State()
	if state.Summary == nil {
		t.Fatal("expected a summary")
	}
	if state.Summary.CurrentGoal != "build a web scraper" {
		t.Errorf("unexpected goal: %q", state.Summary.CurrentGoal)
	}
	if len(state.RawMessages) != memory.KeepRecentN {
		t.Errorf("expected log truncated to %d, got %d", memory.KeepRecentN, len(state.RawMessages))
	}
	// The kept window is the most recent messages.
	if state.RawMessages[len(state.RawMessages)-1].Content != "answer number 4" {
		t.Errorf("unexpected tail: %q", state.RawMessages[len(state.RawMessages)-1].Content)
	}
	if state.SummarizedUpToTurn != state.TotalTurns {
		t.Errorf("expected summarized_up_to_turn %d, got %d", state.TotalTurns, state.SummarizedUpToTurn)
	}
}

func TestSummarizationShortLogNotTruncated(t *testing.T) {
	oracle := &fakeOracle{responses: []fakeResponse{{text: validSummaryJSON}}}
	memory := testMemory()
	memory.RawTokenThreshold = 1
	memory.KeepRecentN = 50
	s := newSession(oracle, memory, config.StageConfig{})
	s.AddTurn("only question", "only answer")

	if !s.CheckAndMaybeCompact(context.Background()) {
		t.Fatal("expected summarization to fire")
	}
	if got := len(s.State().RawMessages); got != 2 {
		t.Errorf("expected short log untouched, got %d messages", got)
	}
}

func TestSummarizationParseFailure(t *testing.T) {
	oracle := &fakeOracle{responses: []fakeResponse{{text: "I could not produce JSON, sorry."}}}
	memory := testMemory()
	memory.RawTokenThreshold = 1
	s := newSession(oracle, memory, config.StageConfig{})
	s.AddTurn("question one", "answer one")
	s.AddTurn("question two", "answer two")

	prev := &schema.SessionSummary{CurrentGoal: "previous goal"}
	prev.Normalize()
	s.state.Summary = prev

	if s.CheckAndMaybeCompact(context.Background()) {
		t.Error("expected parse failure to report no compaction")
	}
	state := s.State()
	if state.Summary == nil || state.Summary.CurrentGoal != "previous goal" {
		t.Error("expected previous summary to survive a parse failure")
	}
	if len(state.RawMessages) != 4 {
		t.Errorf("expected log untouched after failure, got %d messages", len(state.RawMessages))
	}
}

func TestSummarizationOracleError(t *testing.T) {
	oracle := &fakeOracle{responses: []fakeResponse{{err: errors.New("connection refused")}}}
	memory := testMemory()
	memory.RawTokenThreshold = 1
	s := newSession(oracle, memory, config.StageConfig{})
	s.AddTurn("question", "answer")

	if s.CheckAndMaybeCompact(context.Background()) {
		t.Error("expected oracle error to report no compaction")
	}
	if got := len(s.State().RawMessages); got != 2 {
		t.Errorf("expected log untouched, got %d messages", got)
	}
}

func TestCompression(t *testing.T) {
	oracle := &fakeOracle{responses: []fakeResponse{{text: `{
		"user_profile": {"preferences": [], "constraints": [], "background": ""},
		"current_goal": "compressed goal",
		"topics": ["t"],
		"key_facts": [],
		"decisions": [],
		"open_questions": [],
		"todos": []
	}`}}}

	// Raw log under its threshold, summary over its own.
	memory := testMemory()
	memory.SummaryTokenThreshold = 1

	now := time.Now().UTC()
	big := &schema.SessionSummary{
		CurrentGoal: "a goal description well past one token",
		KeyFacts:    []string{"fact one", "fact two", "fact three"},
	}
	big.Normalize()
	state := schema.SessionState{
		ID:          "sess-1",
		RawMessages: []schema.Message{schema.NewUserMessage("hi", now), schema.NewAssistantMessage("hello", now)},
		Summary:     big,
		TotalTurns:  1,
		CreatedAt:   now,
		LastUpdated: now,
	}
	s := restore(state, oracle, memory, config.StageConfig{})

	if !s.CheckAndMaybeCompact(context.Background()) {
		t.Fatal("expected compression to fire")
	}
	got := s.State()
	if got.Summary.CurrentGoal != "compressed goal" {
		t.Errorf("expected compressed summary, got goal %q", got.Summary.CurrentGoal)
	}
	// Compression never touches the raw log.
	if len(got.RawMessages) != 2 {
		t.Errorf("expected raw log untouched, got %d messages", len(got.RawMessages))
	}
	if got.SummarizedUpToTurn != 0 {
		t.Errorf("expected summarized_up_to_turn unchanged, got %d", got.SummarizedUpToTurn)
	}
}

func TestAtMostOneActionPerCheck(t *testing.T) {
	// Both thresholds exceeded: only summarization runs.
	oracle := &fakeOracle{responses: []fakeResponse{{text: validSummaryJSON}}}
	memory := testMemory()
	memory.RawTokenThreshold = 1
	memory.SummaryTokenThreshold = 1

	s := newSession(oracle, memory, config.StageConfig{})
	s.AddTurn("question one", "answer one")
	big := &schema.SessionSummary{CurrentGoal: "an existing goal with plenty of text"}
	big.Normalize()
	s.state.Summary = big

	if !s.CheckAndMaybeCompact(context.Background()) {
		t.Fatal("expected compaction to fire")
	}
	if oracle.calls != 1 {
		t.Errorf("expected exactly one oracle call, got %d", oracle.calls)
	}
}

func TestNoCompressionWithoutSummary(t *testing.T) {
	oracle := &fakeOracle{}
	memory := testMemory()
	memory.SummaryTokenThreshold = 1
	s := newSession(oracle, memory, config.StageConfig{})
	s.AddTurn("hi", "hello")

	if s.CheckAndMaybeCompact(context.Background()) {
		t.Error("expected no compression when no summary exists")
	}
	if oracle.calls != 0 {
		t.Errorf("expected no oracle calls, got %d", oracle.calls)
	}
}
