package observability

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Routing lifecycle event types.
const (
	EventProviderSelected   = "provider.selected"
	EventAttemptFailed      = "attempt.failed"
	EventFailoverExhausted  = "failover.exhausted"
	EventParallelCompleted  = "parallel.completed"
	EventConstraintsIgnored = "constraints.ignored"
)

// EventBus implements the EventPublisher interface on top of the context logger.
type EventBus struct {
	logger *zap.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		logger: logger,
	}
}

// Publish publishes an event with the given type and data.
func (e *EventBus) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if e == nil || e.logger == nil {
		return
	}

	// Sorted keys keep log lines stable.
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(data)+1)
	fields = append(fields, zap.String("event", eventType))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, data[k]))
	}

	logger := e.logger
	if ctx != nil {
		logger = withContextFields(ctx, logger)
	}
	logger.Info(eventType, fields...)
}
