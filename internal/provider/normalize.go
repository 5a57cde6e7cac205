package provider

import (
	"encoding/json"
	"strings"
)

// modelEnvelope is the structured shape extraction instructions ask models to
// return. Models do not always comply, so parsing it is best-effort.
type modelEnvelope struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
}

// NormalizeModelOutput maps a model's raw text output onto the invocation
// contract. If the output is the requested JSON envelope, its fields win;
// otherwise the raw text is used as-is with the adapter's default confidence.
func NormalizeModelOutput(raw string, defaultConfidence float64) (string, float64) {
	trimmed := strings.TrimSpace(raw)
	trimmed = stripCodeFence(trimmed)

	if strings.HasPrefix(trimmed, "{") {
		var env modelEnvelope
		if err := json.Unmarshal([]byte(trimmed), &env); err == nil && env.Text != "" {
			conf := defaultConfidence
			if env.Confidence != nil && *env.Confidence >= 0 && *env.Confidence <= 1 {
				conf = *env.Confidence
			}
			return env.Text, conf
		}
	}
	return raw, defaultConfidence
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Truncate shortens a string for inclusion in error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
