package claude_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctriage/internal/config"
	"doctriage/internal/domain"
	"doctriage/internal/port"
	"doctriage/internal/provider"
	"doctriage/internal/provider/claude"
)

func testConfig() *config.ProviderConfig {
	return &config.ProviderConfig{Enabled: true, APIKey: "test-key", DefaultModel: "claude-sonnet-4-20250514"}
}

func messagesResponse(text, stopReason string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"content":     []map[string]string{{"type": "text", "text": text}},
		"stop_reason": stopReason,
		"usage":       map[string]int{"input_tokens": 100, "output_tokens": 50},
	})
	return string(b)
}

func TestInvoke_SendsPDFAsDocumentBlock(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(messagesResponse("extracted text", "end_turn")))
	}))
	defer server.Close()

	c := claude.NewClientWithEndpoint(testConfig(), server.URL)
	out, err := c.Invoke(context.Background(), port.InvokeInput{
		FileBytes:   []byte("%PDF-1.4 fake"),
		ContentType: "application/pdf",
		Instruction: "extract all text",
	})

	require.NoError(t, err)
	assert.Equal(t, "extracted text", out.Text)
	assert.InDelta(t, 0.9, out.Confidence, 0.001)

	messages := captured["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)
	assert.Equal(t, "document", content[0].(map[string]interface{})["type"])
	assert.Equal(t, "text", content[1].(map[string]interface{})["type"])
}

func TestInvoke_ParsesStructuredEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(messagesResponse(`{"text":"page one\ftwo","confidence":0.72}`, "end_turn")))
	}))
	defer server.Close()

	c := claude.NewClientWithEndpoint(testConfig(), server.URL)
	out, err := c.Invoke(context.Background(), port.InvokeInput{
		FileBytes:   []byte{0x89, 0x50, 0x4e, 0x47},
		ContentType: "image/png",
		Instruction: "extract",
	})

	require.NoError(t, err)
	assert.Equal(t, "page one\ftwo", out.Text)
	assert.InDelta(t, 0.72, out.Confidence, 0.001)
}

func TestInvoke_RateLimitReturnsTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	c := claude.NewClientWithEndpoint(testConfig(), server.URL)
	_, err := c.Invoke(context.Background(), port.InvokeInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})

	var rlErr *provider.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, domain.ProviderClaude, rlErr.Provider)
	assert.Equal(t, float64(30), rlErr.RetryAfter.Seconds())
}

func TestInvoke_ServerErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	c := claude.NewClientWithEndpoint(testConfig(), server.URL)
	_, err := c.Invoke(context.Background(), port.InvokeInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})

	var invErr *provider.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, http.StatusServiceUnavailable, invErr.Status)
}

func TestInvoke_TruncatedOutputIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(messagesResponse("partial", "max_tokens")))
	}))
	defer server.Close()

	c := claude.NewClientWithEndpoint(testConfig(), server.URL)
	_, err := c.Invoke(context.Background(), port.InvokeInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})
	assert.ErrorContains(t, err, "max_tokens")
}

func TestInvoke_UnsupportedContentType(t *testing.T) {
	c := claude.NewClientWithEndpoint(testConfig(), "http://127.0.0.1:0")
	_, err := c.Invoke(context.Background(), port.InvokeInput{
		FileBytes:   []byte("hello"),
		ContentType: "text/plain",
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}
