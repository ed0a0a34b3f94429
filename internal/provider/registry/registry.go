package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/observability"
)

// Registry implements the ProviderRegistry interface and indexes providers by capability.
type Registry struct {
	mu           sync.RWMutex
	order        []string
	providers    map[string]domain.Provider
	byCapability map[domain.Capability][]string
	metrics      domain.MetricsStore
}

// NewRegistry creates a new provider registry. Registering a provider initializes its
// live metrics entry in metrics.
func NewRegistry(metrics domain.MetricsStore) *Registry {
	return &Registry{
		mu:           sync.RWMutex{},
		order:        make([]string, 0),
		providers:    make(map[string]domain.Provider),
		byCapability: make(map[domain.Capability][]string),
		metrics:      metrics,
	}
}

// Register adds a provider to the registry. A provider with an existing id replaces the
// previous one and keeps its registration position. Nothing is registered when the
// metrics entry cannot be initialized.
func (r *Registry) Register(ctx context.Context, provider domain.Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	info := provider.Info()
	if info.ID == "" {
		return errors.New("provider id cannot be empty")
	}

	if r.metrics != nil {
		if err := r.metrics.Init(ctx, info.ID); err != nil {
			return fmt.Errorf("failed to initialize metrics for provider %s: %w", info.ID, err)
		}
	}

	r.mu.Lock()
	if _, exists := r.providers[info.ID]; !exists {
		r.order = append(r.order, info.ID)
	}
	r.providers[info.ID] = provider
	r.rebuildIndex()
	r.mu.Unlock()

	observability.FromContext(ctx).Info("provider registered",
		observability.String("provider_id", info.ID),
		observability.Int("capabilities", len(info.Capabilities)))

	return nil
}

// rebuildIndex recomputes the capability index in registration order. Callers hold mu.
func (r *Registry) rebuildIndex() {
	index := make(map[domain.Capability][]string)
	for _, id := range r.order {
		for _, capability := range r.providers[id].Info().Capabilities {
			ids := index[capability]
			if len(ids) > 0 && ids[len(ids)-1] == id {
				continue
			}
			index[capability] = append(ids, id)
		}
	}
	r.byCapability = index
}

// Get retrieves a provider by id.
func (r *Registry) Get(_ context.Context, providerID string) (domain.Provider, error) {
	if providerID == "" {
		return nil, errors.New("provider id cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[providerID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerID)
	}

	return provider, nil
}

// List returns all providers in registration order.
func (r *Registry) List(_ context.Context) ([]domain.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]domain.Provider, 0, len(r.order))
	for _, id := range r.order {
		providers = append(providers, r.providers[id])
	}

	return providers, nil
}

// ProvidersByCapability returns the providers declaring capability, in registration order.
func (r *Registry) ProvidersByCapability(
	_ context.Context,
	capability domain.Capability,
) ([]domain.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byCapability[capability]
	providers := make([]domain.Provider, 0, len(ids))
	for _, id := range ids {
		providers = append(providers, r.providers[id])
	}

	return providers, nil
}

// ProviderIDsByCapability returns the ids of providers declaring capability.
func (r *Registry) ProviderIDsByCapability(
	_ context.Context,
	capability domain.Capability,
) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.byCapability[capability]))
	copy(ids, r.byCapability[capability])

	return ids, nil
}
