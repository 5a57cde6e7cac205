package port

import (
	"github.com/google/uuid"

	"doctriage/internal/domain"
)

// MetricsSample is one per-attempt observation sent to the external
// observability collaborator.
type MetricsSample struct {
	DocumentID       uuid.UUID
	Provider         domain.ProviderID
	Method           domain.ExtractionMode
	Confidence       float64
	ProcessingTimeMs int64
	Errors           []string
}

// MetricsSink receives samples fire-and-forget. Implementations must never
// block the caller; delivery failures are logged and never retried.
type MetricsSink interface {
	Report(sample MetricsSample)
}
