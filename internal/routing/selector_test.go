package routing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/routing"
)

func TestSelector_Select(t *testing.T) {
	ctx := context.Background()

	t.Run("should return ErrNoProviderAvailable when no provider declares the capability", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(), &fakeProvider{id: "a"})

		provider, err := f.selector.Select(ctx, domain.CapabilityVideoGeneration, nil)
		require.ErrorIs(t, err, domain.ErrNoProviderAvailable)
		require.Nil(t, provider)
	})

	t.Run("should return a single candidate without scoring", func(t *testing.T) {
		config := routing.DefaultSelectorConfig()
		config.StrictConstraints = true
		f := newFixture(t, config, &fakeProvider{id: "only"})
		require.NoError(t, f.metrics.RecordSuccess(ctx, "only", 9*time.Second, 0))

		provider, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			MaxResponseTimeMs: ptr(10.0),
		})
		require.NoError(t, err)
		require.Equal(t, "only", provider.Info().ID)
	})

	t.Run("should break ties by registration order", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(),
			&fakeProvider{id: "a"}, &fakeProvider{id: "b"}, &fakeProvider{id: "c"})

		provider, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, nil)
		require.NoError(t, err)
		require.Equal(t, "a", provider.Info().ID)
	})

	t.Run("should never return a candidate violating max response time when another satisfies it", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(), &fakeProvider{id: "slow"}, &fakeProvider{id: "fast"})

		// slow scores higher without constraints: perfect success rate, moderate latency.
		require.NoError(t, f.metrics.RecordSuccess(ctx, "slow", 3*time.Second, 0))
		require.NoError(t, f.metrics.RecordSuccess(ctx, "fast", 100*time.Millisecond, 0))
		require.NoError(t, f.metrics.RecordFailure(ctx, "fast", 100*time.Millisecond))

		unconstrained, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, nil)
		require.NoError(t, err)
		require.Equal(t, "slow", unconstrained.Info().ID)

		constrained, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			MaxResponseTimeMs: ptr(1000.0),
		})
		require.NoError(t, err)
		require.Equal(t, "fast", constrained.Info().ID)
	})

	t.Run("should skip excluded providers", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(), &fakeProvider{id: "a"}, &fakeProvider{id: "b"})

		provider, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			ExcludeProviders: []string{"a"},
		})
		require.NoError(t, err)
		require.Equal(t, "b", provider.Info().ID)
	})

	t.Run("should fall back to every candidate when all are excluded", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(), &fakeProvider{id: "a"}, &fakeProvider{id: "b"})

		provider, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			ExcludeProviders: []string{"a", "b"},
		})
		require.NoError(t, err)
		require.Equal(t, "a", provider.Info().ID)
	})

	t.Run("should narrow to preferred providers", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(),
			&fakeProvider{id: "a"}, &fakeProvider{id: "b"}, &fakeProvider{id: "c"})

		provider, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			PreferredProviders: []string{"c"},
		})
		require.NoError(t, err)
		require.Equal(t, "c", provider.Info().ID)
	})

	t.Run("should ignore preferred providers that are not candidates", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(), &fakeProvider{id: "a"}, &fakeProvider{id: "b"})

		provider, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			PreferredProviders: []string{"missing"},
		})
		require.NoError(t, err)
		require.Equal(t, "a", provider.Info().ID)
	})

	t.Run("should honour caller weights", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(), &fakeProvider{id: "pricey"}, &fakeProvider{id: "cheap"})
		require.NoError(t, f.metrics.RecordSuccess(ctx, "pricey", 10*time.Millisecond, 0.05))
		require.NoError(t, f.metrics.RecordSuccess(ctx, "cheap", 5*time.Second, 0.01))

		provider, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			QualityWeight: ptr(0.0),
			SpeedWeight:   ptr(0.0),
			CostWeight:    ptr(1.0),
		})
		require.NoError(t, err)
		require.Equal(t, "cheap", provider.Info().ID)
	})

	t.Run("should return the top zero-scored candidate when every candidate violates", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(), &fakeProvider{id: "a"}, &fakeProvider{id: "b"})
		require.NoError(t, f.metrics.RecordSuccess(ctx, "a", time.Second, 0.05))
		require.NoError(t, f.metrics.RecordSuccess(ctx, "b", time.Second, 0.05))

		provider, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			MaxCostPerRequest: ptr(0.01),
		})
		require.NoError(t, err)
		require.Equal(t, "a", provider.Info().ID)
	})

	t.Run("should fail with ErrAllCandidatesZeroScored in strict mode", func(t *testing.T) {
		config := routing.DefaultSelectorConfig()
		config.StrictConstraints = true
		f := newFixture(t, config, &fakeProvider{id: "a"}, &fakeProvider{id: "b"})
		require.NoError(t, f.metrics.RecordFailure(ctx, "a", time.Millisecond))
		require.NoError(t, f.metrics.RecordFailure(ctx, "b", time.Millisecond))

		provider, err := f.selector.Select(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			MaxFailureRate: ptr(0.5),
		})
		require.ErrorIs(t, err, domain.ErrAllCandidatesZeroScored)
		require.Nil(t, provider)
	})

	t.Run("should surface registry errors", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig())
		selector := routing.NewSelector(failingRegistry{f.registry}, f.metrics, nil, routing.DefaultSelectorConfig())

		_, err := selector.Select(ctx, domain.CapabilityTextGeneration, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to look up providers")
	})
}

func TestSelector_Rank(t *testing.T) {
	ctx := context.Background()

	t.Run("should rank violators below every eligible candidate", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(),
			&fakeProvider{id: "violator"}, &fakeProvider{id: "weak"}, &fakeProvider{id: "strong"})
		require.NoError(t, f.metrics.RecordSuccess(ctx, "violator", 10*time.Millisecond, 0.2))
		require.NoError(t, f.metrics.RecordFailure(ctx, "weak", time.Millisecond))
		require.NoError(t, f.metrics.RecordFailure(ctx, "weak", time.Millisecond))
		require.NoError(t, f.metrics.RecordSuccess(ctx, "strong", 10*time.Millisecond, 0))

		ranked, err := f.selector.Rank(ctx, domain.CapabilityTextGeneration, &domain.SelectionConstraints{
			MaxCostPerRequest: ptr(0.1),
		})
		require.NoError(t, err)
		require.Len(t, ranked, 3)

		require.Equal(t, "strong", ranked[0].Provider.Info().ID)
		require.Equal(t, "weak", ranked[1].Provider.Info().ID)
		require.True(t, ranked[1].Eligible)
		require.Equal(t, "violator", ranked[2].Provider.Info().ID)
		require.False(t, ranked[2].Eligible)
		require.InDelta(t, 0.0, ranked[2].Score, 0)
	})

	t.Run("should compute the weighted score", func(t *testing.T) {
		f := newFixture(t, routing.DefaultSelectorConfig(), &fakeProvider{id: "a"})
		require.NoError(t, f.metrics.RecordSuccess(ctx, "a", 5*time.Second, 0.05))

		ranked, err := f.selector.Rank(ctx, domain.CapabilityTextGeneration, nil)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		// 1*0.5 + 0.5*0.3 + 0.5*0.2
		require.InDelta(t, 0.75, ranked[0].Score, 1e-9)
	})

	t.Run("should use custom normalization ceilings", func(t *testing.T) {
		config := routing.DefaultSelectorConfig()
		config.SpeedCeilingMs = 1000
		config.CostCeiling = 1
		f := newFixture(t, config, &fakeProvider{id: "a"})
		require.NoError(t, f.metrics.RecordSuccess(ctx, "a", 2*time.Second, 0.5))

		ranked, err := f.selector.Rank(ctx, domain.CapabilityTextGeneration, nil)
		require.NoError(t, err)
		// 1*0.5 + 0*0.3 + 0.5*0.2
		require.InDelta(t, 0.6, ranked[0].Score, 1e-9)
	})
}

type failingRegistry struct {
	domain.ProviderRegistry
}

func (failingRegistry) ProvidersByCapability(context.Context, domain.Capability) ([]domain.Provider, error) {
	return nil, errors.New("registry offline")
}
