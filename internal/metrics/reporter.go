// Package metrics forwards per-attempt observations to an external
// observability collaborator. Reporting is fire-and-forget: the request path
// enqueues and moves on, delivery happens on a background goroutine, and
// delivery failures are logged, never retried.
package metrics

import (
	"context"
	"log"
	"sync"

	"doctriage/internal/port"
)

// DeliverFunc sends one sample to the external collaborator.
type DeliverFunc func(sample port.MetricsSample) error

// LogDeliverer writes samples to the process log. The default delivery when
// no external collector is configured.
func LogDeliverer(sample port.MetricsSample) error {
	log.Printf("metrics: doc=%s provider=%s method=%s confidence=%.2f elapsed_ms=%d errors=%d",
		sample.DocumentID, sample.Provider, sample.Method, sample.Confidence, sample.ProcessingTimeMs, len(sample.Errors))
	return nil
}

// Reporter implements port.MetricsSink over a buffered channel hand-off so
// the main request path never awaits delivery.
type Reporter struct {
	ch      chan port.MetricsSample
	deliver DeliverFunc
	wg      sync.WaitGroup
}

// NewReporter creates a Reporter with the given buffer size.
func NewReporter(deliver DeliverFunc, bufferSize int) *Reporter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if deliver == nil {
		deliver = LogDeliverer
	}
	return &Reporter{
		ch:      make(chan port.MetricsSample, bufferSize),
		deliver: deliver,
	}
}

// Start launches the background drain goroutine. It runs until ctx is
// canceled, then drains whatever is already buffered and exits.
func (r *Reporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case sample := <-r.ch:
						r.send(sample)
					default:
						return
					}
				}
			case sample := <-r.ch:
				r.send(sample)
			}
		}
	}()
}

// Wait blocks until the drain goroutine has exited.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

// Report enqueues a sample without blocking. A full buffer drops the sample;
// observability loss is preferred over request latency.
func (r *Reporter) Report(sample port.MetricsSample) {
	select {
	case r.ch <- sample:
	default:
		log.Printf("metrics: buffer full, dropping sample for provider %s", sample.Provider)
	}
}

func (r *Reporter) send(sample port.MetricsSample) {
	if err := r.deliver(sample); err != nil {
		log.Printf("metrics: delivery failed (not retried): %v", err)
	}
}
