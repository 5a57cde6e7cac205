package port

import (
	"context"

	"doctriage/internal/domain"
)

// ConsolidationInput is the per-page extraction output plus industry context
// handed to the batching/adaptive extension.
type ConsolidationInput struct {
	Pages    []domain.PageText
	Industry string
}

// Consolidator is the batching/adaptive extension for large multi-page
// documents. Treated as a synchronous RPC-style collaborator; its internal
// retries are opaque to the engine.
type Consolidator interface {
	Consolidate(ctx context.Context, input ConsolidationInput) (*domain.ConsolidationResult, error)
}
