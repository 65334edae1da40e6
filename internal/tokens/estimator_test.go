package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/chattmt/chattmt/internal/schema"
)

func TestEstimate(t *testing.T) {
	if got := Estimate(""); got != 0 {
		t.Errorf("empty text: expected 0, got %d", got)
	}
	if got := Estimate("abcd"); got != 1 {
		t.Errorf("4 bytes: expected 1, got %d", got)
	}
	if got := Estimate("abcde"); got != 2 {
		t.Errorf("5 bytes: expected 2 (round up), got %d", got)
	}
}

func TestEstimateMonotonic(t *testing.T) {
	prev := 0
	text := ""
	for i := 0; i < 50; i++ {
		text += "word "
		got := Estimate(text)
		if got < prev {
			t.Fatalf("estimate decreased from %d to %d at length %d", prev, got, len(text))
		}
		prev = got
	}
}

func TestEstimateMessages(t *testing.T) {
	if got := EstimateMessages(nil); got != 0 {
		t.Errorf("no messages: expected 0, got %d", got)
	}

	now := time.Now()
	msgs := []schema.Message{schema.NewUserMessage("abcd", now)}
	// 4 overhead + 1 ("user") + 1 ("abcd") + 3 priming.
	if got := EstimateMessages(msgs); got != 9 {
		t.Errorf("single message: expected 9, got %d", got)
	}

	msgs = append(msgs, schema.NewAssistantMessage("abcd", now))
	one := EstimateMessages(msgs[:1])
	two := EstimateMessages(msgs)
	if two <= one {
		t.Errorf("adding a message should increase the estimate: %d -> %d", one, two)
	}
}

func TestEstimateSummary(t *testing.T) {
	if got := EstimateSummary(nil); got != 0 {
		t.Errorf("nil summary: expected 0, got %d", got)
	}

	summary := &schema.SessionSummary{}
	summary.Normalize()
	base := EstimateSummary(summary)

	summary.KeyFacts = []string{strings.Repeat("fact ", 20)}
	grown := EstimateSummary(summary)
	if grown <= base {
		t.Errorf("populated summary should cost more: %d -> %d", base, grown)
	}

	summary.Todos = []string{"write tests"}
	if got := EstimateSummary(summary); got <= grown {
		t.Errorf("adding a field should not decrease the estimate: %d -> %d", grown, got)
	}
}
