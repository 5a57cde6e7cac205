package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Classification is the structural profile of a document, produced once per
// document before routing and immutable afterwards.
type Classification struct {
	DocumentKind   string     `json:"document_kind"`
	Complexity     Complexity `json:"complexity"`
	HasTable       bool       `json:"has_table"`
	HasChart       bool       `json:"has_chart"`
	HasHandwriting bool       `json:"has_handwriting"`
	Recommended    ProviderID `json:"recommended_provider"`
	Confidence     int        `json:"confidence"` // 0-100
	Reasoning      string     `json:"reasoning"`
}

// RoutingDecision maps a classification plus current provider availability to
// an ordered fallback chain. Derived deterministically; never persisted.
type RoutingDecision struct {
	Chosen           ProviderID   `json:"chosen_provider"`
	CandidateOrder   []ProviderID `json:"candidate_order"`
	Reason           string       `json:"reason"`
	Confidence       float64      `json:"confidence"` // 0-1
	EstimatedSeconds float64      `json:"estimated_seconds"`
}

// Attempt records one provider invocation made while servicing a request.
type Attempt struct {
	Provider  ProviderID     `json:"provider"`
	Outcome   AttemptOutcome `json:"outcome"`
	ElapsedMs int64          `json:"elapsed_ms"`
	Error     string         `json:"error,omitempty"`
}

// ProcessingResult is the normalized output of the execution engine.
// ProviderUsed names exactly the provider that produced Text, which may
// differ from the routing decision's chosen provider when fallback occurred.
// The attempt log is append-only and final once returned.
type ProcessingResult struct {
	DocumentID   uuid.UUID            `json:"document_id"`
	Text         string               `json:"text"`
	Confidence   float64              `json:"confidence"` // 0-1
	ProviderUsed ProviderID           `json:"provider_used"`
	AttemptLog   []Attempt            `json:"attempt_log"`
	Metadata     map[string]string    `json:"metadata,omitempty"`
	Pages        []PageText           `json:"pages,omitempty"`
	Consolidated *ConsolidationResult `json:"consolidated,omitempty"`
}

// PageText is one page of extracted text handed to the consolidation
// extension for large multi-page documents.
type PageText struct {
	PageNumber int        `json:"page_number"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Source     ProviderID `json:"source"`
}

// PageEvaluation flags a page the consolidation extension wants re-extracted.
type PageEvaluation struct {
	PageNumber        int        `json:"page_number"`
	NeedsReanalysis   bool       `json:"needs_reanalysis"`
	RecommendedMethod ProviderID `json:"recommended_method"`
	Reason            string     `json:"reason"`
}

// SelfEvaluation is the consolidation extension's per-page quality report.
type SelfEvaluation struct {
	PageEvaluations []PageEvaluation `json:"page_evaluations"`
}

// ProcessingPlan describes how the consolidation extension batched the input.
type ProcessingPlan struct {
	Batches        int  `json:"batches"`
	FallbackNeeded bool `json:"fallback_needed"`
}

// ConsolidationResult is the output of the batching/adaptive extension.
type ConsolidationResult struct {
	ExtractedData  json.RawMessage `json:"extracted_data"`
	Confidence     float64         `json:"confidence"`
	SelfEvaluation SelfEvaluation  `json:"self_evaluation"`
	ProcessingPlan ProcessingPlan  `json:"processing_plan"`
}

// WarmState is a point-in-time snapshot of one provider's warm session.
// Mutated only by the warm-session manager's background tasks.
type WarmState struct {
	IsWarm     bool      `json:"is_warm"`
	LastPingAt time.Time `json:"last_ping_at"`
}
