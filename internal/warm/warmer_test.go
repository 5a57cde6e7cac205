package warm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"doctriage/internal/domain"
	"doctriage/internal/port"
	"doctriage/internal/provider"
	"doctriage/internal/warm"
	"doctriage/mocks"
)

func TestStart_InitialWarmUpMarksProvidersWarm(t *testing.T) {
	ok := mocks.NewMockProvider(domain.ProviderClaude)
	bad := mocks.NewMockProvider(domain.ProviderGemini)
	ok.On("Invoke", mock.Anything, mock.Anything).Return(&port.InvokeOutput{Text: "ready"}, nil)
	bad.On("Invoke", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	pool := provider.NewPoolFromProviders(ok, bad)
	w := warm.New(pool, warm.Config{HeartbeatInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.True(t, w.IsWarm(domain.ProviderClaude))
	assert.False(t, w.IsWarm(domain.ProviderGemini))
	assert.Equal(t, []domain.ProviderID{domain.ProviderClaude}, w.WarmProviders())

	cancel()
	w.Wait()
}

func TestHeartbeat_FailuresBelowThresholdKeepProviderWarm(t *testing.T) {
	p := mocks.NewMockProvider(domain.ProviderClaude)
	// First ping succeeds, everything after fails.
	p.On("Invoke", mock.Anything, mock.Anything).Return(&port.InvokeOutput{Text: "ready"}, nil).Once()
	p.On("Invoke", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	pool := provider.NewPoolFromProviders(p)
	w := warm.New(pool, warm.Config{HeartbeatInterval: 10 * time.Millisecond, FailureThreshold: 3})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	assert.True(t, w.IsWarm(domain.ProviderClaude))

	// Two consecutive failures must not flip the state yet.
	assert.Never(t, func() bool {
		return !w.IsWarm(domain.ProviderClaude)
	}, 22*time.Millisecond, 2*time.Millisecond, "provider flipped cold before the failure threshold")

	// The third failure flips it.
	assert.Eventually(t, func() bool {
		return !w.IsWarm(domain.ProviderClaude)
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	w.Wait()
}

func TestHeartbeat_RecoveryResetsFailureCount(t *testing.T) {
	p := mocks.NewMockProvider(domain.ProviderClaude)
	p.On("Invoke", mock.Anything, mock.Anything).Return(nil, errors.New("flaky")).Twice()
	p.On("Invoke", mock.Anything, mock.Anything).Return(&port.InvokeOutput{Text: "ready"}, nil)

	pool := provider.NewPoolFromProviders(p)
	w := warm.New(pool, warm.Config{HeartbeatInterval: 10 * time.Millisecond, FailureThreshold: 3})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool {
		return w.IsWarm(domain.ProviderClaude)
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	w.Wait()
}

func TestStates_SnapshotCoversEveryProvider(t *testing.T) {
	p1 := mocks.NewMockProvider(domain.ProviderClaude)
	p2 := mocks.NewMockProvider(domain.ProviderOCR)
	pool := provider.NewPoolFromProviders(p1, p2)
	w := warm.New(pool, warm.Config{})

	w.MarkWarm(domain.ProviderClaude, true)

	states := w.States()
	assert.Len(t, states, 2)
	assert.True(t, states[domain.ProviderClaude].IsWarm)
	assert.False(t, states[domain.ProviderClaude].LastPingAt.IsZero())
	assert.False(t, states[domain.ProviderOCR].IsWarm)
	assert.True(t, states[domain.ProviderOCR].LastPingAt.IsZero())
}
