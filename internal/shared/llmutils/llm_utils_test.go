package llmutils

import "testing"

type payload struct {
	Flag  bool   `json:"flag"`
	Value string `json:"value"`
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"plain", `{"flag": true, "value": "x"}`},
		{"fenced", "```json\n{\"flag\": true, \"value\": \"x\"}\n```"},
		{"bare fence", "```\n{\"flag\": true, \"value\": \"x\"}\n```"},
		{"prose wrapped", "Here is the result:\n{\"flag\": true, \"value\": \"x\"}\nHope that helps!"},
		{"think block", "<think>reasoning...</think>{\"flag\": true, \"value\": \"x\"}"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out payload
			if err := ExtractJSON(tc.raw, &out); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !out.Flag || out.Value != "x" {
				t.Errorf("wrong payload: %+v", out)
			}
		})
	}
}

func TestExtractJSONFailure(t *testing.T) {
	for _, raw := range []string{"", "not json at all", "{broken", "<think>only thoughts</think>"} {
		var out payload
		if err := ExtractJSON(raw, &out); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := Truncate("a longer string", 6); got != "a long..." {
		t.Errorf("expected truncation, got %q", got)
	}
}
