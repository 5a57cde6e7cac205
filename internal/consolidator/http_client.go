// Package consolidator is the client for the external batching/adaptive
// extension. The extension consumes per-page extraction output plus an
// industry tag and returns consolidated entities with a per-page quality
// self-evaluation. Its internal retries are opaque to this engine.
package consolidator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"doctriage/internal/domain"
	"doctriage/internal/port"
)

// Client implements port.Consolidator over a synchronous HTTP RPC.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a consolidator client for the given endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type consolidateRequest struct {
	Pages    []domain.PageText `json:"pages"`
	Industry string            `json:"industry"`
}

func (c *Client) Consolidate(ctx context.Context, input port.ConsolidationInput) (*domain.ConsolidationResult, error) {
	bodyBytes, err := json.Marshal(consolidateRequest{Pages: input.Pages, Industry: input.Industry})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling consolidator: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("consolidator error (status %d): %s", resp.StatusCode, respBody)
	}

	var result domain.ConsolidationResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	return &result, nil
}
