package routing

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/observability"
)

// SelectorConfig holds the default weights and normalization ceilings used for scoring.
type SelectorConfig struct {
	QualityWeight     float64
	SpeedWeight       float64
	CostWeight        float64
	SpeedCeilingMs    float64
	CostCeiling       float64
	StrictConstraints bool
}

// DefaultSelectorConfig returns the stock weights (0.5/0.3/0.2) and ceilings (10s, $0.10).
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		QualityWeight:     0.5,
		SpeedWeight:       0.3,
		CostWeight:        0.2,
		SpeedCeilingMs:    10000,
		CostCeiling:       0.1,
		StrictConstraints: false,
	}
}

// Candidate is a scored provider.
type Candidate struct {
	Provider domain.Provider
	Metrics  domain.ProviderMetrics
	Score    float64
	// Eligible is false when the provider breached a hard constraint. Its score is then 0.
	Eligible bool
}

// Selector picks the best provider for a capability from live metrics.
type Selector struct {
	registry domain.ProviderRegistry
	metrics  domain.MetricsStore
	events   domain.EventPublisher
	config   SelectorConfig
}

// NewSelector creates a new weighted selector.
func NewSelector(
	registry domain.ProviderRegistry,
	metrics domain.MetricsStore,
	events domain.EventPublisher,
	config SelectorConfig,
) *Selector {
	if config.SpeedCeilingMs <= 0 {
		config.SpeedCeilingMs = DefaultSelectorConfig().SpeedCeilingMs
	}
	if config.CostCeiling <= 0 {
		config.CostCeiling = DefaultSelectorConfig().CostCeiling
	}

	return &Selector{
		registry: registry,
		metrics:  metrics,
		events:   events,
		config:   config,
	}
}

// Select returns the highest-scoring provider for capability.
func (s *Selector) Select(
	ctx context.Context,
	capability domain.Capability,
	constraints *domain.SelectionConstraints,
) (domain.Provider, error) {
	candidates, err := s.candidates(ctx, capability)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}

	ranked := s.rank(ctx, narrow(candidates, constraints), constraints)
	top := ranked[0]

	if !top.Eligible {
		if s.config.StrictConstraints {
			return nil, fmt.Errorf("%w: capability %s", domain.ErrAllCandidatesZeroScored, capability)
		}

		observability.FromContext(ctx).Warn("every candidate violates constraints, using top ranked provider",
			observability.String("capability", string(capability)),
			observability.String("provider_id", top.Provider.Info().ID),
			observability.Error(domain.ErrAllCandidatesZeroScored))
		s.publish(ctx, observability.EventConstraintsIgnored, map[string]interface{}{
			"capability":  string(capability),
			"provider_id": top.Provider.Info().ID,
		})
	}

	observability.FromContext(ctx).Debug("provider selected",
		observability.String("provider_id", top.Provider.Info().ID),
		observability.Float64("score", top.Score))

	return top.Provider, nil
}

// Rank scores every candidate for capability after applying exclusions and preferences.
// Eligible candidates come first, then by descending score; ties keep registration order.
func (s *Selector) Rank(
	ctx context.Context,
	capability domain.Capability,
	constraints *domain.SelectionConstraints,
) ([]Candidate, error) {
	candidates, err := s.candidates(ctx, capability)
	if err != nil {
		return nil, err
	}

	return s.rank(ctx, narrow(candidates, constraints), constraints), nil
}

func (s *Selector) candidates(ctx context.Context, capability domain.Capability) ([]domain.Provider, error) {
	providers, err := s.registry.ProvidersByCapability(ctx, capability)
	if err != nil {
		return nil, fmt.Errorf("failed to look up providers: %w", err)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: capability %s", domain.ErrNoProviderAvailable, capability)
	}

	return providers, nil
}

// narrow removes excluded providers, falling back to the full list when nothing remains,
// then keeps only preferred providers when any of them remain.
func narrow(candidates []domain.Provider, constraints *domain.SelectionConstraints) []domain.Provider {
	if constraints == nil {
		return candidates
	}

	remaining := candidates
	if len(constraints.ExcludeProviders) > 0 {
		filtered := filter(candidates, func(id string) bool {
			return !slices.Contains(constraints.ExcludeProviders, id)
		})
		if len(filtered) > 0 {
			remaining = filtered
		}
	}

	if len(constraints.PreferredProviders) > 0 {
		preferred := filter(remaining, func(id string) bool {
			return slices.Contains(constraints.PreferredProviders, id)
		})
		if len(preferred) > 0 {
			remaining = preferred
		}
	}

	return remaining
}

func filter(providers []domain.Provider, keep func(id string) bool) []domain.Provider {
	result := make([]domain.Provider, 0, len(providers))
	for _, p := range providers {
		if keep(p.Info().ID) {
			result = append(result, p)
		}
	}
	return result
}

func (s *Selector) rank(
	ctx context.Context,
	providers []domain.Provider,
	constraints *domain.SelectionConstraints,
) []Candidate {
	ranked := make([]Candidate, 0, len(providers))
	for _, p := range providers {
		m := s.lookupMetrics(ctx, p.Info().ID)
		score, eligible := s.score(m, constraints)
		ranked = append(ranked, Candidate{
			Provider: p,
			Metrics:  m,
			Score:    score,
			Eligible: eligible,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Eligible != ranked[j].Eligible {
			return ranked[i].Eligible
		}
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

func (s *Selector) lookupMetrics(ctx context.Context, providerID string) domain.ProviderMetrics {
	m, err := s.metrics.Get(ctx, providerID)
	if err != nil {
		observability.FromContext(ctx).Debug("no live metrics, assuming defaults",
			observability.String("provider_id", providerID),
			observability.Error(err))
		return domain.NewProviderMetrics(providerID, time.Now())
	}
	return m
}

// score returns the weighted score of m and whether m satisfies every hard constraint.
func (s *Selector) score(m domain.ProviderMetrics, constraints *domain.SelectionConstraints) (float64, bool) {
	qualityWeight := s.config.QualityWeight
	speedWeight := s.config.SpeedWeight
	costWeight := s.config.CostWeight

	if constraints != nil {
		if constraints.QualityWeight != nil {
			qualityWeight = *constraints.QualityWeight
		}
		if constraints.SpeedWeight != nil {
			speedWeight = *constraints.SpeedWeight
		}
		if constraints.CostWeight != nil {
			costWeight = *constraints.CostWeight
		}

		if violates(m, constraints) {
			return 0, false
		}
	}

	speedScore := math.Max(0, 1-m.AverageResponseTimeMs/s.config.SpeedCeilingMs)
	costScore := math.Max(0, 1-m.AverageCost/s.config.CostCeiling)

	return m.SuccessRate*qualityWeight + speedScore*speedWeight + costScore*costWeight, true
}

func violates(m domain.ProviderMetrics, constraints *domain.SelectionConstraints) bool {
	if constraints.MaxResponseTimeMs != nil && m.AverageResponseTimeMs > *constraints.MaxResponseTimeMs {
		return true
	}
	if constraints.MaxCostPerRequest != nil && m.AverageCost > *constraints.MaxCostPerRequest {
		return true
	}
	if constraints.MaxFailureRate != nil && m.ErrorRate > *constraints.MaxFailureRate {
		return true
	}
	return false
}

func (s *Selector) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events != nil {
		s.events.Publish(ctx, eventType, data)
	}
}
