package mocks

import (
	"sync"

	"doctriage/internal/port"
)

// MockMetricsSink records samples for inspection. Safe for concurrent use;
// racing mode reports from multiple goroutines.
type MockMetricsSink struct {
	mu      sync.Mutex
	samples []port.MetricsSample
}

func (m *MockMetricsSink) Report(sample port.MetricsSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, sample)
}

// Samples returns a copy of everything reported so far.
func (m *MockMetricsSink) Samples() []port.MetricsSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]port.MetricsSample, len(m.samples))
	copy(out, m.samples)
	return out
}
