package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrPricingNotFound indicates that no pricing covers a model.
var ErrPricingNotFound = errors.New("pricing not found")

// InMemoryPricingRegistry stores per-model pricing. Providers report dated snapshots
// (gpt-4o-mini-2024-07-18), which resolve to the longest registered base name.
type InMemoryPricingRegistry struct {
	mu      sync.RWMutex
	pricing map[string]PricingConfig
}

// NewInMemoryPricingRegistry creates an empty registry.
func NewInMemoryPricingRegistry() *InMemoryPricingRegistry {
	return &InMemoryPricingRegistry{
		mu:      sync.RWMutex{},
		pricing: make(map[string]PricingConfig),
	}
}

// GetPricing returns the pricing of model, or of its longest registered prefix.
func (r *InMemoryPricingRegistry) GetPricing(_ context.Context, model string) (PricingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if config, ok := r.pricing[model]; ok {
		return config, nil
	}

	base := ""
	for name := range r.pricing {
		if strings.HasPrefix(model, name+"-") && len(name) > len(base) {
			base = name
		}
	}

	if base == "" {
		return PricingConfig{}, fmt.Errorf("%w: %s", ErrPricingNotFound, model)
	}

	return r.pricing[base], nil
}

// RegisterPricing sets the pricing of model, replacing any previous entry.
func (r *InMemoryPricingRegistry) RegisterPricing(_ context.Context, model string, config PricingConfig) error {
	if model == "" {
		return errors.New("model cannot be empty")
	}

	if config.InputCostPer1K < 0 || config.OutputCostPer1K < 0 || config.CostPerImage < 0 {
		return fmt.Errorf("pricing for %s cannot be negative", model)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pricing[model] = config
	return nil
}
