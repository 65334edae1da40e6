// Package llmutils holds small helpers for working with raw oracle output.
package llmutils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)
	reFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// Truncate shortens a string to at most n characters, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StripThink removes <think>…</think> blocks that some models embed.
func StripThink(s string) string {
	return reThink.ReplaceAllString(s, "")
}

// ExtractJSON locates the JSON object in a raw oracle response and
// unmarshals it into out. Models wrap JSON in markdown fences or prose more
// often than not, so this strips thinking blocks and fences first, then
// falls back to the outermost brace pair. A response with no decodable
// object is a parse failure the caller must recover from.
func ExtractJSON(raw string, out any) error {
	s := strings.TrimSpace(StripThink(raw))
	if s == "" {
		return fmt.Errorf("empty response")
	}

	if m := reFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	if err := json.Unmarshal([]byte(s), out); err == nil {
		return nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
