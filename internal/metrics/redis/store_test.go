package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	metricsredis "github.com/davidbz/switchboard/internal/metrics/redis"
)

func newTestStore(t *testing.T) (*metricsredis.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := metricsredis.NewStore(client, "test:metrics:")
	require.NoError(t, err)

	return store, mr
}

func TestNewStore(t *testing.T) {
	t.Run("should reject nil client", func(t *testing.T) {
		store, err := metricsredis.NewStore(nil, "")
		require.Error(t, err)
		require.Nil(t, store)
	})
}

func TestStore_Init(t *testing.T) {
	t.Run("should write an optimistic entry under the key prefix", func(t *testing.T) {
		store, mr := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Init(ctx, "openai"))
		require.True(t, mr.Exists("test:metrics:openai"))

		m, err := store.Get(ctx, "openai")
		require.NoError(t, err)
		require.Equal(t, "openai", m.ProviderID)
		require.InDelta(t, 1.0, m.SuccessRate, 0)
		require.Zero(t, m.TotalRequests)
	})

	t.Run("should keep an existing entry", func(t *testing.T) {
		store, _ := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Init(ctx, "openai"))
		require.NoError(t, store.RecordSuccess(ctx, "openai", time.Second, 0.1))
		require.NoError(t, store.Init(ctx, "openai"))

		m, err := store.Get(ctx, "openai")
		require.NoError(t, err)
		require.EqualValues(t, 1, m.TotalRequests)
	})

	t.Run("should not reset counters built by another instance", func(t *testing.T) {
		first, mr := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, first.Init(ctx, "openai"))
		for range 5 {
			require.NoError(t, first.RecordFailure(ctx, "openai", time.Millisecond))
		}

		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		second, err := metricsredis.NewStore(client, "test:metrics:")
		require.NoError(t, err)

		require.NoError(t, second.Init(ctx, "openai"))

		m, err := second.Get(ctx, "openai")
		require.NoError(t, err)
		require.EqualValues(t, 5, m.TotalRequests)
		require.EqualValues(t, 5, m.FailedRequests)
		require.InDelta(t, 0.0, m.SuccessRate, 0)

		all, err := second.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})
}

func TestStore_Record(t *testing.T) {
	t.Run("should aggregate successes and failures", func(t *testing.T) {
		store, _ := newTestStore(t)
		ctx := context.Background()
		require.NoError(t, store.Init(ctx, "p"))

		require.NoError(t, store.RecordSuccess(ctx, "p", 100*time.Millisecond, 0.01))
		require.NoError(t, store.RecordSuccess(ctx, "p", 300*time.Millisecond, 0.03))
		require.NoError(t, store.RecordFailure(ctx, "p", 10*time.Millisecond))

		m, err := store.Get(ctx, "p")
		require.NoError(t, err)
		require.EqualValues(t, 3, m.TotalRequests)
		require.EqualValues(t, 2, m.SuccessfulRequests)
		require.EqualValues(t, 1, m.FailedRequests)
		require.InDelta(t, 0.02, m.AverageCost, 1e-12)
		require.InDelta(t, 200.0, m.AverageResponseTimeMs, 1e-9)
		require.InDelta(t, 2.0/3.0, m.SuccessRate, 1e-12)
	})

	t.Run("should return error for unknown provider", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.Get(context.Background(), "missing")
		require.Error(t, err)
	})

	t.Run("should surface connection errors", func(t *testing.T) {
		store, mr := newTestStore(t)
		mr.Close()

		err := store.RecordFailure(context.Background(), "p", time.Millisecond)
		require.Error(t, err)
	})
}

func TestStore_List(t *testing.T) {
	t.Run("should list providers in initialization order", func(t *testing.T) {
		store, _ := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Init(ctx, "first"))
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, store.Init(ctx, "second"))

		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, "first", all[0].ProviderID)
		require.Equal(t, "second", all[1].ProviderID)
	})
}

func TestStore_Concurrent(t *testing.T) {
	t.Run("should not lose concurrent updates", func(t *testing.T) {
		store, _ := newTestStore(t)
		ctx := context.Background()
		require.NoError(t, store.Init(ctx, "p"))

		const workers = 10
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.RecordSuccess(ctx, "p", time.Millisecond, 0.01)
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		m, err := store.Get(ctx, "p")
		require.NoError(t, err)
		require.EqualValues(t, workers, m.TotalRequests)
		require.InDelta(t, 0.1, m.TotalCost, 1e-9)
	})
}
