package metrics_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/metrics"
)

func TestMemoryStore_Init(t *testing.T) {
	t.Run("should start optimistic", func(t *testing.T) {
		store := metrics.NewMemoryStore()
		ctx := context.Background()

		require.NoError(t, store.Init(ctx, "openai"))

		m, err := store.Get(ctx, "openai")
		require.NoError(t, err)
		require.Equal(t, "openai", m.ProviderID)
		require.Zero(t, m.TotalRequests)
		require.InDelta(t, 1.0, m.SuccessRate, 0)
		require.InDelta(t, 0.0, m.ErrorRate, 0)
	})

	t.Run("should reset an existing entry", func(t *testing.T) {
		store := metrics.NewMemoryStore()
		ctx := context.Background()

		require.NoError(t, store.Init(ctx, "openai"))
		require.NoError(t, store.RecordSuccess(ctx, "openai", time.Second, 0.5))
		require.NoError(t, store.Init(ctx, "openai"))

		m, err := store.Get(ctx, "openai")
		require.NoError(t, err)
		require.Zero(t, m.TotalRequests)

		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("should return error for unknown provider", func(t *testing.T) {
		store := metrics.NewMemoryStore()

		_, err := store.Get(context.Background(), "missing")
		require.Error(t, err)
	})
}

func TestMemoryStore_RecordSuccess(t *testing.T) {
	t.Run("should keep an exact running cost average", func(t *testing.T) {
		store := metrics.NewMemoryStore()
		ctx := context.Background()
		require.NoError(t, store.Init(ctx, "p"))

		require.NoError(t, store.RecordSuccess(ctx, "p", 100*time.Millisecond, 0.01))
		require.NoError(t, store.RecordSuccess(ctx, "p", 300*time.Millisecond, 0.03))

		m, err := store.Get(ctx, "p")
		require.NoError(t, err)
		require.Equal(t, 0.02, m.AverageCost) //nolint:testifylint // exact arithmetic is part of the contract
		require.InDelta(t, 0.04, m.TotalCost, 1e-12)
		require.InDelta(t, 200.0, m.AverageResponseTimeMs, 1e-9)
		require.EqualValues(t, 2, m.TotalRequests)
		require.EqualValues(t, 2, m.SuccessfulRequests)
		require.InDelta(t, 1.0, m.SuccessRate, 0)
	})

	t.Run("should create entries for providers never initialized", func(t *testing.T) {
		store := metrics.NewMemoryStore()
		ctx := context.Background()

		require.NoError(t, store.RecordSuccess(ctx, "late", time.Millisecond, 0.1))

		m, err := store.Get(ctx, "late")
		require.NoError(t, err)
		require.EqualValues(t, 1, m.TotalRequests)
	})
}

func TestMemoryStore_RecordFailure(t *testing.T) {
	t.Run("should count failures in rates", func(t *testing.T) {
		store := metrics.NewMemoryStore()
		ctx := context.Background()
		require.NoError(t, store.Init(ctx, "p"))

		require.NoError(t, store.RecordSuccess(ctx, "p", 100*time.Millisecond, 0.02))
		require.NoError(t, store.RecordFailure(ctx, "p", 50*time.Millisecond))
		require.NoError(t, store.RecordFailure(ctx, "p", 50*time.Millisecond))
		require.NoError(t, store.RecordFailure(ctx, "p", 50*time.Millisecond))

		m, err := store.Get(ctx, "p")
		require.NoError(t, err)
		require.EqualValues(t, 4, m.TotalRequests)
		require.EqualValues(t, 3, m.FailedRequests)
		require.InDelta(t, 0.25, m.SuccessRate, 1e-12)
		require.InDelta(t, 0.75, m.ErrorRate, 1e-12)
		require.InDelta(t, 1.0, m.SuccessRate+m.ErrorRate, 1e-12)
		require.InDelta(t, 0.02, m.AverageCost, 1e-12)
		require.InDelta(t, 100.0, m.AverageResponseTimeMs, 1e-9)
	})
}

func TestMemoryStore_Concurrent(t *testing.T) {
	t.Run("should not lose concurrent updates", func(t *testing.T) {
		store := metrics.NewMemoryStore()
		ctx := context.Background()
		require.NoError(t, store.Init(ctx, "p"))

		const workers = 50
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				if idx%5 == 0 {
					_ = store.RecordFailure(ctx, "p", time.Millisecond)
					return
				}
				_ = store.RecordSuccess(ctx, "p", time.Millisecond, 0.01)
			}(i)
		}
		wg.Wait()

		m, err := store.Get(ctx, "p")
		require.NoError(t, err)
		require.EqualValues(t, workers, m.TotalRequests)
		require.EqualValues(t, 40, m.SuccessfulRequests)
		require.EqualValues(t, 10, m.FailedRequests)
		require.InDelta(t, 0.4, m.TotalCost, 1e-9)
	})
}

func TestApplySuccess(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := domain.NewProviderMetrics("p", time.Time{})

	metrics.ApplySuccess(&m, 10*time.Millisecond, 0.1, now)

	require.Equal(t, now, m.LastUpdated)
	require.InDelta(t, 0.1, m.AverageCost, 0)
}
