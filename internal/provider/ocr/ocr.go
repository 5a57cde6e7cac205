package ocr

import (
	"context"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"doctriage/internal/config"
	"doctriage/internal/domain"
	"doctriage/internal/port"
	"doctriage/internal/provider"
)

func init() {
	provider.Register(domain.ProviderOCR, func(cfg *config.ProviderConfig) (port.Provider, error) {
		return NewClient(cfg), nil
	})
}

// Client implements port.Provider using local Tesseract via gosseract.
// It is the only provider that makes no network calls, and the only one
// reachable when every AI provider is unavailable.
type Client struct {
	languages []string
}

// NewClient creates a Tesseract-backed provider.
func NewClient(cfg *config.ProviderConfig) *Client {
	langs := []string{"eng"}
	if cfg.DefaultModel != "" {
		// DefaultModel doubles as the language list for the OCR block, e.g. "eng+deu".
		langs = strings.Split(cfg.DefaultModel, "+")
	}
	return &Client{languages: langs}
}

// ID returns the provider identity.
func (c *Client) ID() domain.ProviderID {
	return domain.ProviderOCR
}

func (c *Client) Invoke(ctx context.Context, input port.InvokeInput) (*port.InvokeOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(c.languages...); err != nil {
		return nil, &provider.InvocationError{Provider: domain.ProviderOCR, Err: err}
	}
	if err := client.SetImageFromBytes(input.FileBytes); err != nil {
		return nil, &provider.InvocationError{Provider: domain.ProviderOCR, Err: err}
	}

	text, err := client.Text()
	if err != nil {
		return nil, &provider.InvocationError{Provider: domain.ProviderOCR, Err: err}
	}

	confidence := estimateConfidence(text)

	return &port.InvokeOutput{
		Text:       text,
		Confidence: confidence,
		Metadata: map[string]string{
			"engine":     "tesseract",
			"languages":  strings.Join(c.languages, "+"),
			"text_bytes": strconv.Itoa(len(text)),
		},
	}, nil
}

// estimateConfidence scores OCR output from text-quality indicators; Tesseract
// itself reports no document-level confidence through this path.
func estimateConfidence(text string) float64 {
	confidence := 0.5

	if len(text) > 1000 {
		confidence += 0.1
	}
	if len(text) > 5000 {
		confidence += 0.1
	}

	words := strings.Fields(text)
	if len(words) > 100 {
		confidence += 0.1
	}

	// Penalize garbage-heavy output.
	if len(words) > 0 {
		var garbled int
		for _, w := range words {
			if len(w) > 25 {
				garbled++
			}
		}
		if float64(garbled)/float64(len(words)) > 0.1 {
			confidence -= 0.2
		}
	}

	if confidence < 0.1 {
		confidence = 0.1
	}
	return confidence
}
