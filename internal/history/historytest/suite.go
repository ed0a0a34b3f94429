// Package historytest holds the behavior every history.Store implementation must share.
package historytest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/history"
)

// Base is the reference timestamp used by the suite.
var Base = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture

func row(id, provider string, capability domain.Capability, success bool, ms int64, cost float64, at time.Time) history.Row {
	return history.Row{
		ExecutionResult: domain.ExecutionResult{
			ID:             id,
			RequestID:      "req-" + id,
			ProviderID:     provider,
			ModelID:        "model",
			Capability:     capability,
			Success:        success,
			ResponseTimeMs: ms,
			Cost:           cost,
			Timestamp:      at,
		},
		Metadata: []byte(`{"model":"model"}`),
	}
}

// RunStoreSuite runs the shared Store behavior against stores built by newStore.
func RunStoreSuite(t *testing.T, newStore func(t *testing.T) history.Store) {
	t.Helper()
	ctx := context.Background()

	seed := func(t *testing.T) history.Store {
		t.Helper()
		store := newStore(t)
		rows := []history.Row{
			row("1", "openai", domain.CapabilityTextGeneration, true, 100, 0.01, Base.Add(-3*time.Hour)),
			row("2", "openai", domain.CapabilityTextGeneration, false, 50, 0, Base.Add(-2*time.Hour)),
			row("3", "openai", domain.CapabilityEmbeddings, true, 20, 0.03, Base.Add(-1*time.Hour)),
			row("4", "echo", domain.CapabilityTextGeneration, true, 5, 0, Base.Add(-90*time.Minute)),
			row("5", "echo", domain.CapabilityTextGeneration, true, 5, 0, Base.AddDate(0, 0, -40)),
		}
		for _, r := range rows {
			require.NoError(t, store.Create(ctx, r))
		}
		return store
	}

	t.Run("should find rows oldest first", func(t *testing.T) {
		store := seed(t)

		rows, err := store.Find(ctx, history.Filter{ProviderID: "openai"})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		require.Equal(t, "1", rows[0].ID)
		require.Equal(t, "3", rows[2].ID)
		require.True(t, rows[0].Timestamp.Equal(Base.Add(-3*time.Hour)))
		require.JSONEq(t, `{"model":"model"}`, string(rows[0].Metadata))
		require.Equal(t, "req-1", rows[0].RequestID)
		require.Equal(t, domain.CapabilityTextGeneration, rows[0].Capability)
	})

	t.Run("should filter by window, capability and success", func(t *testing.T) {
		store := seed(t)

		rows, err := store.Find(ctx, history.Filter{
			Capability:  domain.CapabilityTextGeneration,
			Since:       Base.AddDate(0, 0, -30),
			SuccessOnly: true,
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, "1", rows[0].ID)
		require.Equal(t, "4", rows[1].ID)
	})

	t.Run("should exclude rows after the upper bound", func(t *testing.T) {
		store := seed(t)
		require.NoError(t, store.Create(ctx, row("6", "openai", domain.CapabilityTextGeneration, true, 10, 5, Base.Add(time.Hour))))

		rows, err := store.Find(ctx, history.Filter{
			ProviderID: "openai",
			Since:      Base.AddDate(0, 0, -30),
			Until:      Base,
		})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		require.Equal(t, "3", rows[2].ID)

		summaries, err := store.CostByProvider(ctx, history.Filter{ProviderID: "openai", Until: Base})
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		require.InDelta(t, 0.04, summaries[0].TotalCost, 1e-12)
	})

	t.Run("should return newest first with a limit", func(t *testing.T) {
		store := seed(t)

		rows, err := store.Find(ctx, history.Filter{NewestFirst: true, Limit: 2})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, "3", rows[0].ID)
		require.Equal(t, "4", rows[1].ID)
	})

	t.Run("should group successful costs by provider", func(t *testing.T) {
		store := seed(t)

		summaries, err := store.CostByProvider(ctx, history.Filter{Since: Base.AddDate(0, 0, -30)})
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		require.Equal(t, "echo", summaries[0].ProviderID)
		require.EqualValues(t, 1, summaries[0].RequestCount)

		require.Equal(t, "openai", summaries[1].ProviderID)
		require.EqualValues(t, 2, summaries[1].RequestCount)
		require.InDelta(t, 0.04, summaries[1].TotalCost, 1e-12)
	})

	t.Run("should list distinct providers", func(t *testing.T) {
		store := seed(t)

		ids, err := store.DistinctProviders(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"echo", "openai"}, ids)
	})

	t.Run("should update feedback and average ratings", func(t *testing.T) {
		store := seed(t)
		note := "great"

		require.NoError(t, store.UpdateFeedback(ctx, "1", 4, &note))
		require.NoError(t, store.UpdateFeedback(ctx, "2", 2, nil))

		avg, err := store.AverageRating(ctx, history.Filter{ProviderID: "openai"})
		require.NoError(t, err)
		require.InDelta(t, 3.0, avg, 1e-12)

		rows, err := store.Find(ctx, history.Filter{ProviderID: "openai"})
		require.NoError(t, err)
		require.NotNil(t, rows[0].UserRating)
		require.InDelta(t, 4.0, *rows[0].UserRating, 0)
		require.NotNil(t, rows[0].Feedback)
		require.Equal(t, "great", *rows[0].Feedback)
		require.Nil(t, rows[1].Feedback)
		require.Nil(t, rows[2].UserRating)
	})

	t.Run("should return zero average without ratings", func(t *testing.T) {
		store := seed(t)

		avg, err := store.AverageRating(ctx, history.Filter{ProviderID: "echo"})
		require.NoError(t, err)
		require.InDelta(t, 0.0, avg, 0)
	})

	t.Run("should return ErrExecutionNotFound for unknown ids", func(t *testing.T) {
		store := seed(t)

		err := store.UpdateFeedback(ctx, "missing", 3, nil)
		require.ErrorIs(t, err, domain.ErrExecutionNotFound)
	})
}
