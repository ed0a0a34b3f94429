package domain

import (
	"context"
	"time"
)

// Provider represents any external AI provider.
type Provider interface {
	// Info returns the provider's static description.
	Info() ProviderInfo

	// Execute runs one request. Failures should be returned as *ProviderError.
	Execute(ctx context.Context, req Request) (Response, error)
}

// ProviderRegistry manages available providers and indexes them by capability.
type ProviderRegistry interface {
	// Register adds a provider, replacing any provider with the same id.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by id.
	Get(ctx context.Context, providerID string) (Provider, error)

	// List returns all providers in registration order.
	List(ctx context.Context) ([]Provider, error)

	// ProvidersByCapability returns providers declaring capability, in registration order.
	ProvidersByCapability(ctx context.Context, capability Capability) ([]Provider, error)
}

// CapabilityIndex resolves provider ids for a capability.
type CapabilityIndex interface {
	ProviderIDsByCapability(ctx context.Context, capability Capability) ([]string, error)
}

// MetricsStore holds live, per-provider running metrics.
type MetricsStore interface {
	// Init creates an optimistic entry for the provider. Process-local stores reset an
	// existing entry; shared stores keep it.
	Init(ctx context.Context, providerID string) error

	// RecordSuccess folds a successful call into the provider's metrics.
	RecordSuccess(ctx context.Context, providerID string, responseTime time.Duration, cost float64) error

	// RecordFailure folds a failed call into the provider's metrics.
	RecordFailure(ctx context.Context, providerID string, responseTime time.Duration) error

	// Get returns the provider's metrics.
	Get(ctx context.Context, providerID string) (ProviderMetrics, error)

	// List returns metrics for every known provider.
	List(ctx context.Context) ([]ProviderMetrics, error)
}

// ExecutionRecorder appends completed attempts to the execution history.
type ExecutionRecorder interface {
	RecordExecution(ctx context.Context, result ExecutionResult) (string, error)
}

// AttemptObserver receives one callback per provider attempt.
type AttemptObserver interface {
	ObserveAttempt(providerID string, capability Capability, success bool, elapsed time.Duration, cost float64)
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
