// Package warm keeps provider sessions warm. One trivial request per provider
// at startup eliminates first-call latency; periodic heartbeats keep it that
// way. Warm state is written only by this package's background goroutines and
// read by request-handling code through atomic snapshots, so no locks are
// needed on the read path.
package warm

import (
	"context"
	"encoding/base64"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"doctriage/internal/domain"
	"doctriage/internal/port"
	"doctriage/internal/provider"
)

// pingImage is a 1x1 PNG used as the minimal warm-up payload. Every warming
// call consumes provider quota; accepted cost for latency reduction.
var pingImage, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==")

const pingInstruction = "Reply with the single word: ready"

// Config holds warm-session manager settings.
type Config struct {
	HeartbeatInterval time.Duration
	// FailureThreshold is how many consecutive heartbeat failures flip a
	// provider to cold. A single failure is tolerated silently to avoid
	// flapping.
	FailureThreshold int
}

type providerState struct {
	warm     atomic.Bool
	lastPing atomic.Int64 // unix nanos of the last successful ping
	failures atomic.Int32
}

// Warmer is the process-wide warm-session manager. Create one at startup and
// pass the handle explicitly to the router and execution engine.
type Warmer struct {
	pool             *provider.Pool
	interval         time.Duration
	failureThreshold int
	states           map[domain.ProviderID]*providerState
	wg               sync.WaitGroup
}

// New creates a Warmer for every provider in the pool. All providers start cold.
func New(pool *provider.Pool, cfg Config) *Warmer {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 60 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	states := make(map[domain.ProviderID]*providerState, len(pool.IDs()))
	for _, id := range pool.IDs() {
		states[id] = &providerState{}
	}
	return &Warmer{
		pool:             pool,
		interval:         cfg.HeartbeatInterval,
		failureThreshold: cfg.FailureThreshold,
		states:           states,
	}
}

// Start warms every configured provider concurrently, then launches one
// heartbeat goroutine per provider. Warming is best-effort: failures are
// logged and leave the provider cold, never returned. Start blocks until the
// initial warm-up round completes; heartbeats run until ctx is canceled.
func (w *Warmer) Start(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range w.pool.IDs() {
		id := id
		g.Go(func() error {
			w.ping(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range w.pool.IDs() {
		w.wg.Add(1)
		go w.heartbeat(ctx, id)
	}
	log.Printf("warm: initial warm-up complete (%d providers, heartbeat every %s)", len(w.states), w.interval)
}

// Wait blocks until all heartbeat goroutines have exited. Call after
// canceling the context passed to Start.
func (w *Warmer) Wait() {
	w.wg.Wait()
}

func (w *Warmer) heartbeat(ctx context.Context, id domain.ProviderID) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ping(ctx, id)
		}
	}
}

// ping issues one minimal request and updates the provider's warm state.
func (w *Warmer) ping(ctx context.Context, id domain.ProviderID) {
	p, ok := w.pool.Get(id)
	if !ok {
		return
	}
	state := w.states[id]

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := p.Invoke(pingCtx, port.InvokeInput{
		FileBytes:   pingImage,
		ContentType: "image/png",
		Instruction: pingInstruction,
		MaxTokens:   16,
	})
	if err != nil {
		failures := state.failures.Add(1)
		log.Printf("warm: %s ping failed (consecutive=%d): %v", id, failures, err)
		if int(failures) >= w.failureThreshold {
			state.warm.Store(false)
		}
		return
	}

	state.failures.Store(0)
	state.warm.Store(true)
	state.lastPing.Store(time.Now().UnixNano())
}

// IsWarm reports whether the provider's session is warm. Safe for concurrent
// callers.
func (w *Warmer) IsWarm(id domain.ProviderID) bool {
	state, ok := w.states[id]
	return ok && state.warm.Load()
}

// WarmProviders returns the warm providers in static priority order.
func (w *Warmer) WarmProviders() []domain.ProviderID {
	var out []domain.ProviderID
	for _, id := range w.pool.IDs() {
		if w.IsWarm(id) {
			out = append(out, id)
		}
	}
	return out
}

// States returns a point-in-time snapshot of every provider's warm state.
func (w *Warmer) States() map[domain.ProviderID]domain.WarmState {
	out := make(map[domain.ProviderID]domain.WarmState, len(w.states))
	for id, state := range w.states {
		var last time.Time
		if ns := state.lastPing.Load(); ns != 0 {
			last = time.Unix(0, ns)
		}
		out[id] = domain.WarmState{
			IsWarm:     state.warm.Load(),
			LastPingAt: last,
		}
	}
	return out
}

// MarkWarm force-sets a provider's warm flag (used in tests).
func (w *Warmer) MarkWarm(id domain.ProviderID, warm bool) {
	if state, ok := w.states[id]; ok {
		state.warm.Store(warm)
		if warm {
			state.lastPing.Store(time.Now().UnixNano())
		}
	}
}
