package routing_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/metrics"
	"github.com/davidbz/switchboard/internal/provider/registry"
	"github.com/davidbz/switchboard/internal/routing"
)

// fakeProvider is a scripted text generation provider.
type fakeProvider struct {
	id    string
	cost  float64
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (f *fakeProvider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		ID:           f.id,
		Name:         f.id,
		Capabilities: []domain.Capability{domain.CapabilityTextGeneration},
	}
}

func (f *fakeProvider) Execute(ctx context.Context, _ domain.Request) (domain.Response, error) {
	f.calls.Add(1)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}

	return &domain.TextGenerationResponse{
		ResponseMeta: domain.ResponseMeta{
			ID:    "resp-" + f.id,
			Model: "model-" + f.id,
			Cost:  f.cost,
		},
		Content: "from " + f.id,
	}, nil
}

// recordingObserver collects attempt observations.
type recordingObserver struct {
	mu       sync.Mutex
	attempts []string
}

func (o *recordingObserver) ObserveAttempt(
	providerID string,
	_ domain.Capability,
	success bool,
	_ time.Duration,
	_ float64,
) {
	o.mu.Lock()
	defer o.mu.Unlock()

	outcome := "failure"
	if success {
		outcome = "success"
	}
	o.attempts = append(o.attempts, providerID+":"+outcome)
}

func (o *recordingObserver) Attempts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.attempts...)
}

type fixture struct {
	registry *registry.Registry
	metrics  *metrics.MemoryStore
	selector *routing.Selector
}

func newFixture(t *testing.T, config routing.SelectorConfig, providers ...domain.Provider) *fixture {
	t.Helper()

	store := metrics.NewMemoryStore()
	reg := registry.NewRegistry(store)
	for _, p := range providers {
		require.NoError(t, reg.Register(context.Background(), p))
	}

	return &fixture{
		registry: reg,
		metrics:  store,
		selector: routing.NewSelector(reg, store, nil, config),
	}
}

func textRequest() *domain.TextGenerationRequest {
	return &domain.TextGenerationRequest{Prompt: "hello"}
}

func ptr[T any](v T) *T {
	return &v
}
