// Package routing maps a classification plus current provider availability
// onto an ordered preference list. Pure decision logic: no I/O beyond
// reading warm-state snapshots.
package routing

import (
	"fmt"

	"doctriage/internal/domain"
	"doctriage/internal/provider"
	"doctriage/internal/warm"
)

// baseSeconds is the per-provider base time estimate, scaled by the
// document's complexity multiplier. Informational only, used for progress
// estimates, never for correctness.
var baseSeconds = map[domain.ProviderID]float64{
	domain.ProviderClaude: 20,
	domain.ProviderGemini: 8,
	domain.ProviderOpenAI: 15,
	domain.ProviderOCR:    30,
}

// Router derives routing decisions. It holds read-only handles; decisions
// are deterministic given a fixed pool and warm state.
type Router struct {
	pool   *provider.Pool
	warmer *warm.Warmer
}

// New creates a Router.
func New(pool *provider.Pool, warmer *warm.Warmer) *Router {
	return &Router{pool: pool, warmer: warmer}
}

// Route turns a classification into an ordered provider preference list.
// The chosen provider is the classification's recommendation when that
// provider is configured; otherwise the static priority list is walked.
// OCR is never chosen first while any AI provider is configured; that
// ordering is business policy, not a performance artifact.
func (r *Router) Route(c domain.Classification) domain.RoutingDecision {
	chosen := c.Recommended
	reason := fmt.Sprintf("classifier recommended %s for %s/%s", chosen, c.DocumentKind, c.Complexity)

	if !r.pool.Has(chosen) {
		chosen = ""
		for _, id := range domain.PriorityOrder() {
			if r.pool.Has(id) {
				chosen = id
				break
			}
		}
		reason = fmt.Sprintf("%s not configured, walked priority list to %s", c.Recommended, chosen)
	}

	if chosen == domain.ProviderOCR && r.pool.HasAI() {
		for _, id := range domain.PriorityOrder() {
			if id.IsAI() && r.pool.Has(id) {
				chosen = id
				break
			}
		}
		reason = fmt.Sprintf("OCR demoted, %s is configured and AI providers take precedence", chosen)
	}

	if !r.warmer.IsWarm(chosen) && chosen != "" {
		reason += " (cold session, first call may be slow)"
	}

	return domain.RoutingDecision{
		Chosen:           chosen,
		CandidateOrder:   r.candidateOrder(chosen),
		Reason:           reason,
		Confidence:       float64(c.Confidence) / 100,
		EstimatedSeconds: EstimateSeconds(chosen, c.Complexity),
	}
}

// candidateOrder returns the chosen provider followed by every other
// configured provider in static priority order, for use as a fallback chain.
// The pool never contains unsupported providers, so the invariant that the
// order only names pooled providers holds by construction.
func (r *Router) candidateOrder(chosen domain.ProviderID) []domain.ProviderID {
	var order []domain.ProviderID
	if chosen != "" {
		order = append(order, chosen)
	}
	for _, id := range domain.PriorityOrder() {
		if id == chosen || !r.pool.Has(id) {
			continue
		}
		order = append(order, id)
	}
	return order
}

// EstimateSeconds estimates processing time for a provider and complexity
// tier: base per-provider constant times the complexity multiplier.
func EstimateSeconds(p domain.ProviderID, c domain.Complexity) float64 {
	base, ok := baseSeconds[p]
	if !ok {
		return 0
	}
	return base * c.Multiplier()
}
