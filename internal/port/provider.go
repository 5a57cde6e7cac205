package port

import (
	"context"

	"doctriage/internal/domain"
)

// InvokeInput carries one document payload and instruction to a provider.
type InvokeInput struct {
	FileBytes   []byte
	ContentType string
	Instruction string
	MaxTokens   int // optional cap on provider output; 0 means provider default
}

// InvokeOutput is the normalized result every provider adapter must produce,
// regardless of the provider's native response shape.
type InvokeOutput struct {
	Text       string
	Confidence float64 // 0-1
	Metadata   map[string]string
}

// Provider abstracts a single external content-understanding service.
type Provider interface {
	ID() domain.ProviderID
	Invoke(ctx context.Context, input InvokeInput) (*InvokeOutput, error)
}
