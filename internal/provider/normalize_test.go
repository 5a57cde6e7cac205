package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeModelOutput(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantText       string
		wantConfidence float64
	}{
		{
			name:           "plain text passes through with default confidence",
			raw:            "INVOICE #123\nTotal: $500",
			wantText:       "INVOICE #123\nTotal: $500",
			wantConfidence: 0.9,
		},
		{
			name:           "structured envelope wins",
			raw:            `{"text":"INVOICE #123","confidence":0.75}`,
			wantText:       "INVOICE #123",
			wantConfidence: 0.75,
		},
		{
			name:           "envelope inside a code fence",
			raw:            "```json\n{\"text\":\"hello\",\"confidence\":0.6}\n```",
			wantText:       "hello",
			wantConfidence: 0.6,
		},
		{
			name:           "envelope without confidence keeps default",
			raw:            `{"text":"hello"}`,
			wantText:       "hello",
			wantConfidence: 0.9,
		},
		{
			name:           "out-of-range confidence ignored",
			raw:            `{"text":"hello","confidence":42}`,
			wantText:       "hello",
			wantConfidence: 0.9,
		},
		{
			name:           "json that is not the envelope passes through raw",
			raw:            `{"rows":[1,2,3]}`,
			wantText:       `{"rows":[1,2,3]}`,
			wantConfidence: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, conf := NormalizeModelOutput(tt.raw, 0.9)
			assert.Equal(t, tt.wantText, text)
			assert.InDelta(t, tt.wantConfidence, conf, 0.001)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcde...", Truncate("abcdefghij", 5))
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 30, ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, ParseRetryAfterHeader(""))
	assert.Equal(t, 0, ParseRetryAfterHeader("Wed, 21 Oct 2026 07:28:00 GMT"))
}
