// Package engine drives provider execution: sequential cascading fallback
// with per-attempt timeouts, and concurrent racing across warm providers
// with a hard deadline. Every provider output is normalized into one result
// shape and every attempt is recorded in an append-only log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"doctriage/internal/domain"
	"doctriage/internal/port"
	"doctriage/internal/provider"
	"doctriage/internal/warm"
)

// Document is one extraction request payload. Bytes are read once and shared
// read-only across all attempts.
type Document struct {
	ID          uuid.UUID
	Bytes       []byte
	ContentType string
	Instruction string
}

// Config holds execution engine settings.
type Config struct {
	// RaceDeadline is the hard deadline for racing mode.
	RaceDeadline time.Duration
	// AttemptTimeout bounds each cascade attempt so a stalled provider
	// cannot stall the whole fallback chain.
	AttemptTimeout time.Duration
}

// circuit tracks rate-limit backoff for a single provider.
type circuit struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuit) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuit) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// ExhaustedError is the only fatal failure: every candidate, including OCR,
// failed. It carries the full attempt log for caller-side messaging.
type ExhaustedError struct {
	Attempts []domain.Attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted after %d attempts", len(e.Attempts))
}

func (e *ExhaustedError) Unwrap() error {
	return domain.ErrAllProvidersExhausted
}

// Engine executes routing decisions against the provider pool.
type Engine struct {
	pool           *provider.Pool
	warmer         *warm.Warmer
	metrics        port.MetricsSink
	consolidator   port.Consolidator
	raceDeadline   time.Duration
	attemptTimeout time.Duration
	circuits       map[domain.ProviderID]*circuit
}

// New creates an Engine. metrics and consolidator may be nil.
func New(pool *provider.Pool, warmer *warm.Warmer, metrics port.MetricsSink, consolidator port.Consolidator, cfg Config) *Engine {
	if cfg.RaceDeadline <= 0 {
		cfg.RaceDeadline = 12 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = cfg.RaceDeadline
	}
	circuits := make(map[domain.ProviderID]*circuit, len(pool.IDs()))
	for _, id := range pool.IDs() {
		circuits[id] = &circuit{}
	}
	return &Engine{
		pool:           pool,
		warmer:         warmer,
		metrics:        metrics,
		consolidator:   consolidator,
		raceDeadline:   cfg.RaceDeadline,
		attemptTimeout: cfg.AttemptTimeout,
		circuits:       circuits,
	}
}

// Execute runs the document through providers in the requested mode.
func (e *Engine) Execute(ctx context.Context, doc Document, decision domain.RoutingDecision, mode domain.ExtractionMode) (*domain.ProcessingResult, error) {
	switch mode {
	case domain.ModeRace:
		return e.race(ctx, doc)
	case domain.ModeCascade, "":
		return e.cascade(ctx, doc, normalizeOrder(decision.CandidateOrder), nil, domain.ModeCascade)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrInvalidMode, mode)
}

// normalizeOrder moves OCR entries behind every AI entry while preserving
// relative order otherwise. The cascade always prefers another AI provider
// to OCR; OCR runs only as the sole remaining option.
func normalizeOrder(candidates []domain.ProviderID) []domain.ProviderID {
	var ai, ocr []domain.ProviderID
	for _, id := range candidates {
		if id.IsAI() {
			ai = append(ai, id)
		} else {
			ocr = append(ocr, id)
		}
	}
	return append(ai, ocr...)
}

// cascade invokes candidates strictly in order until one succeeds. Attempts
// are independent; the only shared state is the growing attempt log and the
// read-only document bytes.
func (e *Engine) cascade(ctx context.Context, doc Document, candidates []domain.ProviderID, attempts []domain.Attempt, mode domain.ExtractionMode) (*domain.ProcessingResult, error) {
	for _, id := range candidates {
		p, ok := e.pool.Get(id)
		if !ok {
			attempts = append(attempts, domain.Attempt{
				Provider: id,
				Outcome:  domain.AttemptSkipped,
				Error:    domain.ErrProviderUnavailable.Error(),
			})
			continue
		}

		if resetAt, open := e.circuitFor(id).isOpenWithReset(time.Now()); open {
			log.Printf("engine: skipping %s (rate-limit circuit open until %s)", id, resetAt.Format(time.RFC3339))
			attempts = append(attempts, domain.Attempt{
				Provider: id,
				Outcome:  domain.AttemptSkipped,
				Error:    fmt.Sprintf("rate limited until %s", resetAt.Format(time.RFC3339)),
			})
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
		start := time.Now()
		out, err := p.Invoke(attemptCtx, port.InvokeInput{
			FileBytes:   doc.Bytes,
			ContentType: doc.ContentType,
			Instruction: doc.Instruction,
		})
		cancel()
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			e.report(doc.ID, id, mode, 0, elapsed, err)
			outcome := domain.AttemptFailed
			if errors.Is(err, context.DeadlineExceeded) {
				outcome = domain.AttemptTimedOut
			}
			attempts = append(attempts, domain.Attempt{
				Provider:  id,
				Outcome:   outcome,
				ElapsedMs: elapsed,
				Error:     fmt.Sprintf("attempt %d: %v", len(attempts)+1, err),
			})
			e.noteRateLimit(id, err)
			log.Printf("engine: %s failed after %dms, trying next candidate: %v", id, elapsed, err)
			continue
		}

		e.report(doc.ID, id, mode, out.Confidence, elapsed, nil)
		attempts = append(attempts, domain.Attempt{
			Provider:  id,
			Outcome:   domain.AttemptSucceeded,
			ElapsedMs: elapsed,
		})
		return e.buildResult(doc, id, out, attempts), nil
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// race fires a call to every warm provider concurrently and returns the
// first success within the racing deadline. Losing calls are canceled when
// the winner returns; their results are discarded. If the deadline elapses
// or no provider is warm, the engine falls back to cascading starting from
// OCR.
func (e *Engine) race(ctx context.Context, doc Document) (*domain.ProcessingResult, error) {
	warmIDs := e.warmer.WarmProviders()
	if len(warmIDs) == 0 {
		log.Printf("engine: no warm providers, racing unavailable, cascading from OCR")
		return e.cascade(ctx, doc, e.ocrFirstOrder(), nil, domain.ModeRace)
	}

	raceCtx, cancel := context.WithTimeout(ctx, e.raceDeadline)
	defer cancel()

	type raceOutcome struct {
		id      domain.ProviderID
		out     *port.InvokeOutput
		err     error
		elapsed int64
	}
	outcomes := make(chan raceOutcome, len(warmIDs))

	for _, id := range warmIDs {
		p, ok := e.pool.Get(id)
		if !ok {
			continue
		}
		id := id
		go func() {
			start := time.Now()
			out, err := p.Invoke(raceCtx, port.InvokeInput{
				FileBytes:   doc.Bytes,
				ContentType: doc.ContentType,
				Instruction: doc.Instruction,
			})
			outcomes <- raceOutcome{id: id, out: out, err: err, elapsed: time.Since(start).Milliseconds()}
		}()
	}

	// Attempts are logged in completion order; providers still in flight at
	// the deadline are logged as timed out so every initiated attempt shows
	// up in the diagnostics.
	var attempts []domain.Attempt
	completed := make(map[domain.ProviderID]bool, len(warmIDs))
	pending := len(warmIDs)

	for pending > 0 {
		select {
		case r := <-outcomes:
			pending--
			completed[r.id] = true
			if r.err != nil {
				e.report(doc.ID, r.id, domain.ModeRace, 0, r.elapsed, r.err)
				attempts = append(attempts, domain.Attempt{
					Provider:  r.id,
					Outcome:   domain.AttemptFailed,
					ElapsedMs: r.elapsed,
					Error:     fmt.Sprintf("attempt %d: %v", len(attempts)+1, r.err),
				})
				e.noteRateLimit(r.id, r.err)
				continue
			}
			e.report(doc.ID, r.id, domain.ModeRace, r.out.Confidence, r.elapsed, nil)
			attempts = append(attempts, domain.Attempt{
				Provider:  r.id,
				Outcome:   domain.AttemptSucceeded,
				ElapsedMs: r.elapsed,
			})
			log.Printf("engine: race won by %s in %dms", r.id, r.elapsed)
			return e.buildResult(doc, r.id, r.out, attempts), nil
		case <-raceCtx.Done():
			for _, id := range warmIDs {
				if !completed[id] {
					attempts = append(attempts, domain.Attempt{
						Provider:  id,
						Outcome:   domain.AttemptTimedOut,
						ElapsedMs: e.raceDeadline.Milliseconds(),
						Error:     "racing deadline elapsed",
					})
				}
			}
			pending = 0
		}
	}

	log.Printf("engine: race produced no winner, cascading from OCR")
	return e.cascade(ctx, doc, e.ocrFirstOrder(), attempts, domain.ModeRace)
}

// ocrFirstOrder is the racing-failure fallback chain: OCR first (it is local
// and cannot be the cause of unresponsive sessions), then the configured AI
// providers in priority order.
func (e *Engine) ocrFirstOrder() []domain.ProviderID {
	var order []domain.ProviderID
	if e.pool.Has(domain.ProviderOCR) {
		order = append(order, domain.ProviderOCR)
	}
	for _, id := range domain.PriorityOrder() {
		if id.IsAI() && e.pool.Has(id) {
			order = append(order, id)
		}
	}
	return order
}

func (e *Engine) circuitFor(id domain.ProviderID) *circuit {
	c, ok := e.circuits[id]
	if !ok {
		// Unknown provider in a hand-built candidate list; treat as closed.
		return &circuit{}
	}
	return c
}

// noteRateLimit opens the provider's circuit when the failure was a 429.
func (e *Engine) noteRateLimit(id domain.ProviderID, err error) {
	var rlErr *provider.RateLimitError
	if errors.As(err, &rlErr) {
		resetAt := time.Now().Add(rlErr.RetryAfter)
		e.circuitFor(id).open(resetAt)
		log.Printf("engine: %s rate limited, circuit open until %s", id, resetAt.Format(time.RFC3339))
	}
}

func (e *Engine) buildResult(doc Document, used domain.ProviderID, out *port.InvokeOutput, attempts []domain.Attempt) *domain.ProcessingResult {
	return &domain.ProcessingResult{
		DocumentID:   doc.ID,
		Text:         out.Text,
		Confidence:   out.Confidence,
		ProviderUsed: used,
		AttemptLog:   attempts,
		Metadata:     out.Metadata,
		Pages:        splitPages(out.Text, out.Confidence, used),
	}
}

// report hands one attempt observation to the metrics sink. The sink is
// fire-and-forget by contract and never blocks the request path.
func (e *Engine) report(docID uuid.UUID, id domain.ProviderID, mode domain.ExtractionMode, confidence float64, elapsedMs int64, err error) {
	if e.metrics == nil {
		return
	}
	sample := port.MetricsSample{
		DocumentID:       docID,
		Provider:         id,
		Method:           mode,
		Confidence:       confidence,
		ProcessingTimeMs: elapsedMs,
	}
	if err != nil {
		sample.Errors = []string{err.Error()}
	}
	e.metrics.Report(sample)
}
