package providers

import (
	"errors"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/upb/incident-ai-gateway/models"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
)

// Registry holds the configured provider adapters
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider instance
func (r *Registry) Register(provider Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return ErrProviderAlreadyRegistered
	}
	r.providers[name] = provider
	return nil
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}

// Enabled returns enabled providers ordered by ascending priority.
// Providers sharing a priority are ordered by name.
func (r *Registry) Enabled() []Provider {
	return lo.Filter(r.sorted(), func(p Provider, _ int) bool {
		return p.Config().Enabled
	})
}

// Status returns a snapshot of every registered provider, in priority order
func (r *Registry) Status() []models.ProviderStatus {
	return lo.Map(r.sorted(), func(p Provider, _ int) models.ProviderStatus {
		cfg := p.Config()
		return models.ProviderStatus{
			Name:     p.Name(),
			Enabled:  cfg.Enabled,
			Priority: cfg.Priority,
			Models:   append([]string(nil), cfg.Models...),
		}
	})
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}

func (r *Registry) sorted() []Provider {
	r.mu.RLock()
	list := lo.Values(r.providers)
	r.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		pi, pj := list[i].Config().Priority, list[j].Config().Priority
		if pi != pj {
			return pi < pj
		}
		return list[i].Name() < list[j].Name()
	})
	return list
}
