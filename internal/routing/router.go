package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/observability"
)

// RouterConfig holds execution defaults.
type RouterConfig struct {
	MaxRetries     int
	ParallelCount  int
	AttemptTimeout time.Duration
}

// DefaultRouterConfig returns three failover attempts, two parallel slots and a 30s attempt timeout.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MaxRetries:     3,
		ParallelCount:  2,
		AttemptTimeout: 30 * time.Second,
	}
}

// Router executes requests against selected providers and keeps live metrics current.
type Router struct {
	selector *Selector
	metrics  domain.MetricsStore
	recorder domain.ExecutionRecorder
	observer domain.AttemptObserver
	events   domain.EventPublisher
	config   RouterConfig
}

// NewRouter creates a new router. recorder, observer and events may be nil.
func NewRouter(
	selector *Selector,
	metrics domain.MetricsStore,
	recorder domain.ExecutionRecorder,
	observer domain.AttemptObserver,
	events domain.EventPublisher,
	config RouterConfig,
) *Router {
	defaults := DefaultRouterConfig()
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.ParallelCount <= 0 {
		config.ParallelCount = defaults.ParallelCount
	}

	return &Router{
		selector: selector,
		metrics:  metrics,
		recorder: recorder,
		observer: observer,
		events:   events,
		config:   config,
	}
}

// Selector returns the router's selector.
func (r *Router) Selector() *Selector {
	return r.selector
}

// Execute runs req on one provider, updating live metrics and history.
// Failures are returned as *domain.ProviderError attributed to provider.
func (r *Router) Execute(ctx context.Context, provider domain.Provider, req domain.Request) (domain.Response, error) {
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}

	if req == nil {
		return nil, fmt.Errorf("%w: request cannot be nil", domain.ErrInvalidRequestShape)
	}

	if err := domain.ValidateRequest(req, req.Capability()); err != nil {
		return nil, err
	}

	return r.execute(ctx, provider, req, requestID(req))
}

// ExecuteWithFailover selects and executes providers until one succeeds, excluding each
// failed provider from later selections. constraints may be nil. maxRetries <= 0 uses the
// configured default.
func (r *Router) ExecuteWithFailover(
	ctx context.Context,
	req domain.Request,
	capability domain.Capability,
	constraints *domain.SelectionConstraints,
	maxRetries int,
) (domain.Response, error) {
	if err := domain.ValidateRequest(req, capability); err != nil {
		return nil, err
	}

	if maxRetries <= 0 {
		maxRetries = r.config.MaxRetries
	}

	id := requestID(req)
	ctx = observability.WithRequestID(ctx, id)
	ctx = observability.WithCapability(ctx, string(capability))
	logger := observability.FromContext(ctx)

	attemptConstraints := domain.SelectionConstraints{}
	if constraints != nil {
		attemptConstraints = *constraints
	}
	excluded := slices.Clone(attemptConstraints.ExcludeProviders)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("failover aborted: %w", ctxErr)
		}

		attemptConstraints.ExcludeProviders = excluded
		provider, err := r.selector.Select(ctx, capability, &attemptConstraints)
		if err != nil {
			return nil, err
		}

		providerID := provider.Info().ID
		r.publish(ctx, observability.EventProviderSelected, map[string]interface{}{
			"provider_id": providerID,
			"attempt":     attempt,
		})

		resp, err := r.execute(ctx, provider, req, id)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !slices.Contains(excluded, providerID) {
			excluded = append(excluded, providerID)
		}

		logger.Warn("provider attempt failed",
			observability.String("provider_id", providerID),
			observability.Int("attempt", attempt),
			observability.Int("max_retries", maxRetries),
			observability.Error(err))
		r.publish(ctx, observability.EventAttemptFailed, map[string]interface{}{
			"provider_id": providerID,
			"attempt":     attempt,
			"error":       err.Error(),
		})
	}

	r.publish(ctx, observability.EventFailoverExhausted, map[string]interface{}{
		"attempts": maxRetries,
		"excluded": excluded,
	})

	return nil, &domain.FailoverExhaustedError{Attempts: maxRetries, Last: lastErr}
}

// ExecuteParallel runs req concurrently on the top count providers by unconstrained score
// and waits for every call to settle. Surviving responses are returned in rank order.
// count <= 0 uses the configured default.
func (r *Router) ExecuteParallel(
	ctx context.Context,
	req domain.Request,
	capability domain.Capability,
	count int,
) ([]domain.Response, error) {
	if err := domain.ValidateRequest(req, capability); err != nil {
		return nil, err
	}

	if count <= 0 {
		count = r.config.ParallelCount
	}

	id := requestID(req)
	ctx = observability.WithRequestID(ctx, id)
	ctx = observability.WithCapability(ctx, string(capability))

	ranked, err := r.selector.Rank(ctx, capability, nil)
	if err != nil {
		return nil, err
	}

	if len(ranked) > count {
		ranked = ranked[:count]
	}

	slots := make([]domain.Response, len(ranked))

	var wg sync.WaitGroup
	for i, candidate := range ranked {
		wg.Add(1)
		go func(idx int, provider domain.Provider) {
			defer wg.Done()

			resp, execErr := r.execute(ctx, provider, req, id)
			if execErr != nil {
				observability.FromContext(ctx).Warn("parallel slot failed",
					observability.String("provider_id", provider.Info().ID),
					observability.Error(execErr))
				return
			}
			slots[idx] = resp
		}(i, candidate.Provider)
	}
	wg.Wait()

	responses := make([]domain.Response, 0, len(slots))
	for _, resp := range slots {
		if resp != nil {
			responses = append(responses, resp)
		}
	}

	r.publish(ctx, observability.EventParallelCompleted, map[string]interface{}{
		"launched":  len(ranked),
		"succeeded": len(responses),
	})

	return responses, nil
}

// LiveMetrics returns the live metrics of one provider.
func (r *Router) LiveMetrics(ctx context.Context, providerID string) (domain.ProviderMetrics, error) {
	return r.metrics.Get(ctx, providerID)
}

// AllLiveMetrics returns the live metrics of every provider.
func (r *Router) AllLiveMetrics(ctx context.Context) ([]domain.ProviderMetrics, error) {
	return r.metrics.List(ctx)
}

// execute performs one timed attempt. Blame is always assigned to provider, whatever the
// shape of the error it returned.
func (r *Router) execute(
	ctx context.Context,
	provider domain.Provider,
	req domain.Request,
	requestID string,
) (domain.Response, error) {
	providerID := provider.Info().ID
	ctx = observability.WithProvider(ctx, providerID)

	attemptCtx := ctx
	if r.config.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.config.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := provider.Execute(attemptCtx, req)
	elapsed := time.Since(start)

	if err == nil && resp == nil {
		err = errors.New("provider returned no response")
	}

	if err != nil {
		provErr := toProviderError(providerID, elapsed, err)
		r.recordFailure(ctx, req, requestID, provErr, elapsed)
		return nil, provErr
	}

	meta := resp.Meta()
	if meta.ProviderID == "" {
		meta.ProviderID = providerID
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	r.recordSuccess(ctx, req, requestID, providerID, resp, elapsed)

	return resp, nil
}

func toProviderError(providerID string, elapsed time.Duration, err error) *domain.ProviderError {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		normalized := *provErr
		normalized.ProviderID = providerID
		if normalized.ResponseTimeMs == 0 {
			normalized.ResponseTimeMs = elapsed.Milliseconds()
		}
		if normalized.Message == "" {
			normalized.Message = err.Error()
		}
		return &normalized
	}

	return &domain.ProviderError{
		ProviderID:     providerID,
		Message:        err.Error(),
		ResponseTimeMs: elapsed.Milliseconds(),
		Err:            err,
	}
}

func (r *Router) recordSuccess(
	ctx context.Context,
	req domain.Request,
	requestID string,
	providerID string,
	resp domain.Response,
	elapsed time.Duration,
) {
	meta := resp.Meta()
	ctx = observability.WithModel(ctx, meta.Model)
	logger := observability.FromContext(ctx)

	logger.Debug("provider attempt succeeded",
		observability.Duration("elapsed", elapsed),
		observability.Float64("cost", meta.Cost))

	if err := r.metrics.RecordSuccess(ctx, providerID, elapsed, meta.Cost); err != nil {
		logger.Error("failed to update live metrics", observability.Error(err))
	}

	if r.observer != nil {
		r.observer.ObserveAttempt(providerID, req.Capability(), true, elapsed, meta.Cost)
	}

	r.record(ctx, domain.ExecutionResult{
		RequestID:      requestID,
		ProviderID:     providerID,
		ModelID:        meta.Model,
		Capability:     req.Capability(),
		Success:        true,
		ResponseTimeMs: elapsed.Milliseconds(),
		Cost:           meta.Cost,
		TokensUsed:     meta.TokensUsed,
		Timestamp:      meta.Timestamp,
	})
}

func (r *Router) recordFailure(
	ctx context.Context,
	req domain.Request,
	requestID string,
	provErr *domain.ProviderError,
	elapsed time.Duration,
) {
	logger := observability.FromContext(ctx)

	if err := r.metrics.RecordFailure(ctx, provErr.ProviderID, elapsed); err != nil {
		logger.Error("failed to update live metrics", observability.Error(err))
	}

	if r.observer != nil {
		r.observer.ObserveAttempt(provErr.ProviderID, req.Capability(), false, elapsed, provErr.Cost)
	}

	r.record(ctx, domain.ExecutionResult{
		RequestID:      requestID,
		ProviderID:     provErr.ProviderID,
		Capability:     req.Capability(),
		Success:        false,
		ResponseTimeMs: provErr.ResponseTimeMs,
		Cost:           provErr.Cost,
		Error:          provErr.Message,
		Timestamp:      time.Now(),
	})
}

func (r *Router) record(ctx context.Context, result domain.ExecutionResult) {
	if r.recorder == nil {
		return
	}

	if _, err := r.recorder.RecordExecution(ctx, result); err != nil {
		observability.FromContext(ctx).Error("failed to record execution",
			observability.String("provider_id", result.ProviderID),
			observability.Error(err))
	}
}

func (r *Router) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if r.events != nil {
		r.events.Publish(ctx, eventType, data)
	}
}

func requestID(req domain.Request) string {
	if id := req.RequestID(); id != "" {
		return id
	}
	return uuid.NewString()
}
