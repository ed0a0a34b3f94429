package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davidbz/switchboard/internal/domain"
)

type entry struct {
	mu      sync.Mutex
	metrics domain.ProviderMetrics
}

// MemoryStore implements domain.MetricsStore in process memory.
// Updates to one provider are serialized by that provider's entry lock.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory metrics store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:      sync.RWMutex{},
		order:   make([]string, 0),
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Init creates an optimistic entry for the provider, resetting any existing one.
func (s *MemoryStore) Init(_ context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[providerID]; exists {
		e.mu.Lock()
		e.metrics = domain.NewProviderMetrics(providerID, s.now())
		e.mu.Unlock()
		return nil
	}

	s.entries[providerID] = &entry{metrics: domain.NewProviderMetrics(providerID, s.now())}
	s.order = append(s.order, providerID)

	return nil
}

// RecordSuccess folds a successful call into the provider's metrics.
func (s *MemoryStore) RecordSuccess(
	ctx context.Context,
	providerID string,
	responseTime time.Duration,
	cost float64,
) error {
	e, err := s.entry(ctx, providerID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	ApplySuccess(&e.metrics, responseTime, cost, s.now())
	e.mu.Unlock()

	return nil
}

// RecordFailure folds a failed call into the provider's metrics.
func (s *MemoryStore) RecordFailure(ctx context.Context, providerID string, responseTime time.Duration) error {
	e, err := s.entry(ctx, providerID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	ApplyFailure(&e.metrics, responseTime, s.now())
	e.mu.Unlock()

	return nil
}

// Get returns a copy of the provider's metrics.
func (s *MemoryStore) Get(_ context.Context, providerID string) (domain.ProviderMetrics, error) {
	s.mu.RLock()
	e, exists := s.entries[providerID]
	s.mu.RUnlock()

	if !exists {
		return domain.ProviderMetrics{}, fmt.Errorf("%w: no metrics for %s", domain.ErrProviderNotFound, providerID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.metrics, nil
}

// List returns metrics for every known provider in initialization order.
func (s *MemoryStore) List(ctx context.Context) ([]domain.ProviderMetrics, error) {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	result := make([]domain.ProviderMetrics, 0, len(ids))
	for _, id := range ids {
		m, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}

	return result, nil
}

// entry returns the provider's entry, creating it if the provider was never initialized.
func (s *MemoryStore) entry(_ context.Context, providerID string) (*entry, error) {
	if providerID == "" {
		return nil, errors.New("provider id cannot be empty")
	}

	s.mu.RLock()
	e, exists := s.entries[providerID]
	s.mu.RUnlock()

	if exists {
		return e, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists = s.entries[providerID]; exists {
		return e, nil
	}

	e = &entry{metrics: domain.NewProviderMetrics(providerID, s.now())}
	s.entries[providerID] = e
	s.order = append(s.order, providerID)

	return e, nil
}
