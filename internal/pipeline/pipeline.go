// Package pipeline runs the per-turn state machine: compaction check,
// query rewrite, context augmentation, then a clarify-or-answer decision.
// Each run is self-contained; the only cross-turn memory is the session's
// clarification counter.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/schema"
	"github.com/chattmt/chattmt/internal/session"
	"github.com/chattmt/chattmt/internal/shared/llmutils"
)

// forcedAnswerFallback is returned when the forced-answer path itself
// fails. The user always receives a response once the clarification round
// limit is hit.
const forcedAnswerFallback = "I understand you need help, but I'm having trouble understanding " +
	"the specific request. Could you try rephrasing your question with " +
	"more details about what you're trying to accomplish?"

// noQuestionsFallback covers the odd case of a positive clarification
// decision with an empty question list.
const noQuestionsFallback = "Could you please provide more details about your request?"

// Pipeline orchestrates one session's turns. It reads session state only
// through the store's accessors and mutates it only through the store's
// operations.
type Pipeline struct {
	session *session.Session
	oracle  schema.LLMProvider
	cfg     *config.Config
}

// New wires a pipeline to a session and an oracle.
func New(sess *session.Session, oracle schema.LLMProvider, cfg *config.Config) *Pipeline {
	return &Pipeline{session: sess, oracle: oracle, cfg: cfg}
}

// Session exposes the underlying session for callers that need to inspect
// or persist it.
func (p *Pipeline) Session() *session.Session { return p.session }

// Process runs one utterance through all four stages and returns the
// terminal result: a final answer or a clarification request. The turn is
// not recorded to the session; use ProcessAndRecord for that.
func (p *Pipeline) Process(ctx context.Context, query string) (schema.PipelineResult, error) {
	slog.Info("processing query",
		"session", p.session.ID(),
		"turn", p.session.TotalTurns()+1,
		"query", llmutils.Truncate(query, 50))

	// Stage 0: compaction check.
	wasSummarized := p.session.CheckAndMaybeCompact(ctx)

	// Stage 1: rewrite against the light context window.
	light := p.session.LightContext(p.cfg.Pipeline.LightContextSize)
	rewrite, err := Rewrite(ctx, p.oracle, query, light, p.session.Summary(), p.cfg.Stages.Rewriter)
	if err != nil {
		return schema.PipelineResult{}, fmt.Errorf("rewrite stage: %w", err)
	}
	effective := rewrite.EffectiveQuery()

	// Stage 2: augment with the recent window and selected memory fields.
	recent := p.session.RecentMessages(p.cfg.Pipeline.RecentContextSize)
	augmented := Augment(recent, rewrite.ContextUsage, p.session.Summary(), p.cfg.Pipeline.RecentContextSize)

	// Stage 3: clarify or answer.
	clarification, err := Decide(ctx, p.oracle, effective, augmented, p.cfg.Stages.Clarifier)
	if err != nil {
		return schema.PipelineResult{}, fmt.Errorf("decision stage: %w", err)
	}

	result := schema.PipelineResult{
		Rewrite:       rewrite,
		Augmented:     augmented,
		Clarification: clarification,
		WasSummarized: wasSummarized,
	}

	if !clarification.NeedsClarification {
		p.session.ResetClarification()
		answer, err := Answer(ctx, p.oracle, effective, augmented, p.cfg.Stages.Answer)
		if err != nil {
			return schema.PipelineResult{}, fmt.Errorf("answer stage: %w", err)
		}
		result.Response = answer
		return result, nil
	}

	rounds := p.session.IncrementClarification()
	maxRounds := p.cfg.Pipeline.MaxClarificationRounds

	if rounds >= maxRounds {
		slog.Info("clarification round limit reached, forcing answer",
			"session", p.session.ID(), "rounds", rounds, "max", maxRounds)
		p.session.ResetClarification()
		result.Response = p.forcedAnswer(ctx, effective, augmented)
		return result, nil
	}

	slog.Info("asking clarification",
		"session", p.session.ID(), "round", rounds, "max", maxRounds,
		"questions", len(clarification.ClarifyingQuestions))
	result.NeedsClarification = true
	result.Response = formatQuestions(clarification.ClarifyingQuestions)
	return result, nil
}

// ProcessAndRecord runs Process and, when the result is a final answer,
// records the turn to the session. Clarification turns leave no trace in
// the message log even though they consumed oracle calls and moved the
// round counter.
func (p *Pipeline) ProcessAndRecord(ctx context.Context, query string) (schema.PipelineResult, error) {
	result, err := p.Process(ctx, query)
	if err != nil {
		return result, err
	}
	if !result.NeedsClarification {
		p.session.AddTurn(query, result.Response)
	}
	return result, nil
}

// forcedAnswer reuses the normal answer path and substitutes a fixed
// apology when even that fails. Transport errors stop here: once the
// round limit is hit the user must receive a response.
func (p *Pipeline) forcedAnswer(ctx context.Context, query string, augmented schema.AugmentedContext) string {
	answer, err := Answer(ctx, p.oracle, query, augmented, p.cfg.Stages.Answer)
	if err != nil {
		slog.Error("forced answer generation failed", "session", p.session.ID(), "err", err)
		return forcedAnswerFallback
	}
	return answer
}

// formatQuestions renders clarifying questions for display: a single
// question verbatim, several as a numbered list.
func formatQuestions(questions []string) string {
	switch len(questions) {
	case 0:
		return noQuestionsFallback
	case 1:
		return questions[0]
	}

	var b strings.Builder
	b.WriteString("I need a bit more information:\n")
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimSpace(b.String())
}
