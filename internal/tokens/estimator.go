// Package tokens provides the cost estimator every compaction threshold is
// expressed in. The estimator is a heuristic, not a billing-accurate
// tokenizer: English text averages roughly four bytes per subword token,
// which is close enough for threshold comparison. Changing the heuristic
// shifts the empirical points at which summarization fires.
package tokens

import "github.com/chattmt/chattmt/internal/schema"

// Chat-format accounting, mirrored from the OpenAI message framing:
// each message carries a fixed metadata overhead, and every request pays a
// small priming cost for the assistant reply.
const (
	perMessageOverhead = 4
	replyPriming       = 3
)

// Estimate returns the estimated token count of text. Zero for empty input,
// and never decreases when text grows.
func Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateMessages returns the estimated cost of a message list, including
// per-message overhead, role and content cost, and the reply priming cost.
func EstimateMessages(messages []schema.Message) int {
	if len(messages) == 0 {
		return 0
	}
	total := 0
	for _, m := range messages {
		total += perMessageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total + replyPriming
}

// EstimateSummary serializes the populated summary fields to text and
// estimates that. Nil summaries cost nothing.
func EstimateSummary(summary *schema.SessionSummary) int {
	if summary == nil {
		return 0
	}
	return Estimate(summary.PromptText())
}
