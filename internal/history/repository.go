package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/observability"
)

const (
	defaultWindowDays   = 30
	defaultHistoryLimit = 100
	viableSuccessRate   = 0.9
	maxUserRating       = 5
)

type metadata struct {
	TokensUsed int    `json:"tokensUsed,omitempty"`
	Model      string `json:"model,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Repository records executions and computes analytics over a time window of history.
type Repository struct {
	store      Store
	index      domain.CapabilityIndex
	windowDays int
	now        func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the clock used for windows and defaults.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithWindowDays sets the window used when callers pass days <= 0.
func WithWindowDays(days int) Option {
	return func(r *Repository) {
		if days > 0 {
			r.windowDays = days
		}
	}
}

// NewRepository creates a history repository. index resolves the providers of a capability.
func NewRepository(store Store, index domain.CapabilityIndex, opts ...Option) *Repository {
	r := &Repository{
		store:      store,
		index:      index,
		windowDays: defaultWindowDays,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RecordExecution appends one execution and returns its row id.
func (r *Repository) RecordExecution(ctx context.Context, result domain.ExecutionResult) (string, error) {
	if result.ProviderID == "" {
		return "", errors.New("provider id cannot be empty")
	}

	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = r.now()
	}

	meta := metadata{TokensUsed: result.TokensUsed, Model: result.ModelID}
	if !result.Success {
		meta = metadata{Error: result.Error}
	}

	blob, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal execution metadata: %w", err)
	}

	if err := r.store.Create(ctx, Row{ExecutionResult: result, Metadata: blob}); err != nil {
		return "", fmt.Errorf("failed to record execution: %w", err)
	}

	observability.FromContext(ctx).Debug("execution recorded",
		observability.String("execution_id", result.ID),
		observability.String("provider_id", result.ProviderID),
		observability.Bool("success", result.Success))

	return result.ID, nil
}

// ProviderMetrics recomputes a provider's metrics from the last days of history.
func (r *Repository) ProviderMetrics(ctx context.Context, providerID string, days int) (domain.ProviderMetrics, error) {
	return r.metricsFor(ctx, providerID, "", days)
}

// AllProviderMetrics returns metrics for every provider present in history.
func (r *Repository) AllProviderMetrics(ctx context.Context, days int) ([]domain.ProviderMetrics, error) {
	ids, err := r.store.DistinctProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	result := make([]domain.ProviderMetrics, 0, len(ids))
	for _, id := range ids {
		m, metricsErr := r.metricsFor(ctx, id, "", days)
		if metricsErr != nil {
			return nil, metricsErr
		}
		result = append(result, m)
	}

	return result, nil
}

// MetricsByCapability returns the metrics of every provider declaring capability, computed
// over all of the provider's rows and sorted by descending success rate.
func (r *Repository) MetricsByCapability(
	ctx context.Context,
	capability domain.Capability,
	days int,
) ([]domain.ProviderMetrics, error) {
	if r.index == nil {
		return nil, errors.New("capability index not configured")
	}

	ids, err := r.index.ProviderIDsByCapability(ctx, capability)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve providers: %w", err)
	}

	result := make([]domain.ProviderMetrics, 0, len(ids))
	for _, id := range ids {
		m, metricsErr := r.metricsFor(ctx, id, "", days)
		if metricsErr != nil {
			return nil, metricsErr
		}
		result = append(result, m)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SuccessRate > result[j].SuccessRate
	})

	return result, nil
}

// BestProvider returns the best provider id for capability under strategy. Only providers
// with a success rate above 0.9 are considered; when none qualify the first provider of
// the capability list is returned.
func (r *Repository) BestProvider(
	ctx context.Context,
	capability domain.Capability,
	strategy domain.Strategy,
	days int,
) (string, error) {
	all, err := r.MetricsByCapability(ctx, capability, days)
	if err != nil {
		return "", err
	}

	if len(all) == 0 {
		return "", fmt.Errorf("%w: capability %s", domain.ErrNoProviderAvailable, capability)
	}

	viable := make([]domain.ProviderMetrics, 0, len(all))
	for _, m := range all {
		if m.SuccessRate > viableSuccessRate {
			viable = append(viable, m)
		}
	}

	if len(viable) == 0 {
		return all[0].ProviderID, nil
	}

	best := viable[0]
	for _, m := range viable[1:] {
		switch strategy {
		case domain.StrategySpeed:
			if m.AverageResponseTimeMs < best.AverageResponseTimeMs {
				best = m
			}
		case domain.StrategyCost:
			if m.AverageCost < best.AverageCost {
				best = m
			}
		case domain.StrategyQuality:
			if m.SuccessRate*m.AverageUserRating > best.SuccessRate*best.AverageUserRating {
				best = m
			}
		default:
			return "", fmt.Errorf("unknown strategy %q", strategy)
		}
	}

	return best.ProviderID, nil
}

// CompareProviders returns the metrics of each listed provider. A non-empty capability
// scopes the metrics to that capability's rows.
func (r *Repository) CompareProviders(
	ctx context.Context,
	providerIDs []string,
	capability domain.Capability,
	days int,
) (map[string]domain.ProviderMetrics, error) {
	result := make(map[string]domain.ProviderMetrics, len(providerIDs))
	for _, id := range providerIDs {
		m, err := r.metricsFor(ctx, id, capability, days)
		if err != nil {
			return nil, err
		}
		result[id] = m
	}

	return result, nil
}

// CostAnalysis sums successful spend per provider. A non-empty capability restricts the rows.
func (r *Repository) CostAnalysis(
	ctx context.Context,
	capability domain.Capability,
	days int,
) ([]domain.CostSummary, error) {
	since, until := r.window(days)
	summaries, err := r.store.CostByProvider(ctx, Filter{
		Capability:  capability,
		Since:       since,
		Until:       until,
		SuccessOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate costs: %w", err)
	}

	for i := range summaries {
		if summaries[i].RequestCount > 0 {
			summaries[i].AvgCostPerRequest = summaries[i].TotalCost / float64(summaries[i].RequestCount)
		}
	}

	return summaries, nil
}

// PerformanceTrends buckets a provider's history into intervalDays-wide buckets starting
// days ago. Empty buckets are omitted.
func (r *Repository) PerformanceTrends(
	ctx context.Context,
	providerID string,
	days int,
	intervalDays int,
) ([]domain.TrendPoint, error) {
	days = r.days(days)
	if intervalDays <= 0 {
		intervalDays = 1
	}

	now := r.now()
	rows, err := r.store.Find(ctx, Filter{
		ProviderID: providerID,
		Since:      now.AddDate(0, 0, -days),
		Until:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load executions: %w", err)
	}

	trends := make([]domain.TrendPoint, 0)
	for offset := 0; offset < days; offset += intervalDays {
		start := now.AddDate(0, 0, -days+offset)
		end := start.AddDate(0, 0, intervalDays)

		bucket := make([]Row, 0)
		for _, row := range rows {
			if !row.Timestamp.Before(start) && row.Timestamp.Before(end) {
				bucket = append(bucket, row)
			}
		}

		if len(bucket) == 0 {
			continue
		}

		var successful int
		var responseTime, cost float64
		for _, row := range bucket {
			if row.Success {
				successful++
				responseTime += float64(row.ResponseTimeMs)
				cost += row.Cost
			}
		}

		point := domain.TrendPoint{
			Date:         start,
			SuccessRate:  float64(successful) / float64(len(bucket)),
			RequestCount: len(bucket),
		}
		if successful > 0 {
			point.AvgResponseTimeMs = responseTime / float64(successful)
			point.AvgCost = cost / float64(successful)
		}
		trends = append(trends, point)
	}

	return trends, nil
}

// AverageUserRating returns the mean non-null rating of a provider over the window, or 0.
func (r *Repository) AverageUserRating(ctx context.Context, providerID string, days int) (float64, error) {
	since, until := r.window(days)
	avg, err := r.store.AverageRating(ctx, Filter{
		ProviderID: providerID,
		Since:      since,
		Until:      until,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to average ratings: %w", err)
	}

	return avg, nil
}

// RecordUserFeedback attaches a 0..5 rating and optional feedback to one execution.
func (r *Repository) RecordUserFeedback(
	ctx context.Context,
	executionID string,
	rating float64,
	feedback *string,
) error {
	if math.IsNaN(rating) || rating < 0 || rating > maxUserRating {
		return fmt.Errorf("%w: got %v", domain.ErrInvalidRating, rating)
	}

	if executionID == "" {
		return fmt.Errorf("%w: empty id", domain.ErrExecutionNotFound)
	}

	if err := r.store.UpdateFeedback(ctx, executionID, rating, feedback); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	observability.FromContext(ctx).Info("user feedback recorded",
		observability.String("execution_id", executionID),
		observability.Float64("rating", rating))

	return nil
}

// ExecutionHistory returns the newest executions, optionally for one provider.
// limit <= 0 returns the latest 100.
func (r *Repository) ExecutionHistory(
	ctx context.Context,
	providerID string,
	limit int,
) ([]domain.ExecutionResult, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := r.store.Find(ctx, Filter{
		ProviderID:  providerID,
		NewestFirst: true,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load executions: %w", err)
	}

	results := make([]domain.ExecutionResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, decode(row))
	}

	return results, nil
}

func (r *Repository) metricsFor(
	ctx context.Context,
	providerID string,
	capability domain.Capability,
	days int,
) (domain.ProviderMetrics, error) {
	since, until := r.window(days)
	rows, err := r.store.Find(ctx, Filter{
		ProviderID: providerID,
		Capability: capability,
		Since:      since,
		Until:      until,
	})
	if err != nil {
		return domain.ProviderMetrics{}, fmt.Errorf("failed to load executions for %s: %w", providerID, err)
	}

	return Summarize(providerID, rows, r.now()), nil
}

func (r *Repository) days(days int) int {
	if days <= 0 {
		return r.windowDays
	}
	return days
}

// window returns the inclusive [now-days, now] bounds.
func (r *Repository) window(days int) (time.Time, time.Time) {
	now := r.now()
	return now.AddDate(0, 0, -r.days(days)), now
}

// decode restores the fields carried only by the metadata blob.
func decode(row Row) domain.ExecutionResult {
	result := row.ExecutionResult

	var meta metadata
	if len(row.Metadata) > 0 && json.Unmarshal(row.Metadata, &meta) == nil {
		result.TokensUsed = meta.TokensUsed
		result.Error = meta.Error
		if result.ModelID == "" {
			result.ModelID = meta.Model
		}
	}

	return result
}
