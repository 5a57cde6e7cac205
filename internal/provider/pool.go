package provider

import (
	"fmt"

	"doctriage/internal/config"
	"doctriage/internal/domain"
	"doctriage/internal/port"
)

// Factory is a function that creates a Provider from its config block.
type Factory func(cfg *config.ProviderConfig) (port.Provider, error)

// registry of provider factories, populated by init() in each provider
// package or explicitly via Register.
var factories = map[domain.ProviderID]Factory{}

// Register registers a provider factory by ID.
func Register(id domain.ProviderID, factory Factory) {
	factories[id] = factory
}

// Pool holds one handle per configured provider. It is built once at startup
// and read-only afterwards, so concurrent readers need no locking.
type Pool struct {
	handles map[domain.ProviderID]port.Provider
	order   []domain.ProviderID
}

// NewPool constructs a Pool from config, instantiating every enabled provider
// through its registered factory. Providers are kept in static priority order.
func NewPool(cfg *config.ProvidersConfig) (*Pool, error) {
	p := &Pool{handles: make(map[domain.ProviderID]port.Provider)}
	for _, id := range domain.PriorityOrder() {
		pc := cfg.ByID(id)
		if pc == nil || !pc.Enabled {
			continue
		}
		factory, ok := factories[id]
		if !ok {
			return nil, fmt.Errorf("no factory registered for provider %s", id)
		}
		handle, err := factory(pc)
		if err != nil {
			return nil, fmt.Errorf("creating provider %s: %w", id, err)
		}
		p.handles[id] = handle
		p.order = append(p.order, id)
	}
	if len(p.order) == 0 {
		return nil, domain.ErrNoProvidersConfigured
	}
	return p, nil
}

// NewPoolFromProviders builds a Pool directly from handles (used in tests).
func NewPoolFromProviders(providers ...port.Provider) *Pool {
	p := &Pool{handles: make(map[domain.ProviderID]port.Provider)}
	for _, h := range providers {
		p.handles[h.ID()] = h
		p.order = append(p.order, h.ID())
	}
	return p
}

// Get returns the handle for a provider, if configured.
func (p *Pool) Get(id domain.ProviderID) (port.Provider, bool) {
	h, ok := p.handles[id]
	return h, ok
}

// Has reports whether the provider is configured.
func (p *Pool) Has(id domain.ProviderID) bool {
	_, ok := p.handles[id]
	return ok
}

// IDs returns the configured provider IDs in static priority order.
func (p *Pool) IDs() []domain.ProviderID {
	out := make([]domain.ProviderID, len(p.order))
	copy(out, p.order)
	return out
}

// HasAI reports whether at least one AI-capable provider is configured.
func (p *Pool) HasAI() bool {
	for _, id := range p.order {
		if id.IsAI() {
			return true
		}
	}
	return false
}
