package routing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctriage/internal/domain"
	"doctriage/internal/port"
	"doctriage/internal/provider"
	"doctriage/internal/routing"
	"doctriage/internal/warm"
	"doctriage/mocks"
)

func newRouter(ids ...domain.ProviderID) *routing.Router {
	providers := make([]port.Provider, 0, len(ids))
	for _, id := range ids {
		providers = append(providers, mocks.NewMockProvider(id))
	}
	pool := provider.NewPoolFromProviders(providers...)
	return routing.New(pool, warm.New(pool, warm.Config{}))
}

func TestRoute_HonorsRecommendationWhenConfigured(t *testing.T) {
	r := newRouter(domain.ProviderClaude, domain.ProviderGemini, domain.ProviderOCR)

	d := r.Route(domain.Classification{
		DocumentKind: "invoice",
		Complexity:   domain.ComplexitySimple,
		Recommended:  domain.ProviderGemini,
		Confidence:   95,
	})

	assert.Equal(t, domain.ProviderGemini, d.Chosen)
	assert.Equal(t, []domain.ProviderID{domain.ProviderGemini, domain.ProviderClaude, domain.ProviderOCR}, d.CandidateOrder)
	assert.InDelta(t, 0.95, d.Confidence, 0.001)
}

func TestRoute_UnconfiguredRecommendationWalksPriority(t *testing.T) {
	r := newRouter(domain.ProviderOpenAI, domain.ProviderOCR)

	d := r.Route(domain.Classification{
		Recommended: domain.ProviderClaude,
		Confidence:  60,
	})

	assert.Equal(t, domain.ProviderOpenAI, d.Chosen)
	assert.Contains(t, d.Reason, "not configured")
}

func TestRoute_OCRNeverChosenWhileAIConfigured(t *testing.T) {
	r := newRouter(domain.ProviderGemini, domain.ProviderOCR)

	d := r.Route(domain.Classification{
		Recommended: domain.ProviderOCR,
		Confidence:  50,
	})

	assert.Equal(t, domain.ProviderGemini, d.Chosen)
	assert.Contains(t, d.Reason, "demoted")
}

func TestRoute_OCROnlyPool(t *testing.T) {
	r := newRouter(domain.ProviderOCR)

	d := r.Route(domain.Classification{
		Recommended: domain.ProviderClaude,
		Confidence:  40,
	})

	assert.Equal(t, domain.ProviderOCR, d.Chosen)
	assert.Equal(t, []domain.ProviderID{domain.ProviderOCR}, d.CandidateOrder)
}

func TestRoute_Deterministic(t *testing.T) {
	r := newRouter(domain.ProviderClaude, domain.ProviderGemini, domain.ProviderOpenAI, domain.ProviderOCR)
	c := domain.Classification{
		DocumentKind: "contract",
		Complexity:   domain.ComplexityComplex,
		Recommended:  domain.ProviderClaude,
		Confidence:   80,
	}

	first := r.Route(c)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Route(c))
	}
}

func TestRoute_CandidateOrderOnlyNamesConfiguredProviders(t *testing.T) {
	r := newRouter(domain.ProviderGemini)

	d := r.Route(domain.Classification{Recommended: domain.ProviderGemini, Confidence: 90})
	require.Len(t, d.CandidateOrder, 1)
	assert.Equal(t, domain.ProviderGemini, d.CandidateOrder[0])
}

func TestEstimateSeconds_ScalesWithComplexity(t *testing.T) {
	assert.InDelta(t, 4.0, routing.EstimateSeconds(domain.ProviderGemini, domain.ComplexitySimple), 0.001)
	assert.InDelta(t, 8.0, routing.EstimateSeconds(domain.ProviderGemini, domain.ComplexityMedium), 0.001)
	assert.InDelta(t, 36.0, routing.EstimateSeconds(domain.ProviderClaude, domain.ComplexityComplex), 0.001)
	assert.Zero(t, routing.EstimateSeconds("bogus", domain.ComplexityMedium))
}
