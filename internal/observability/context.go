package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDBytes = 16 // W3C trace-context trace id
	spanIDBytes  = 8  // W3C trace-context parent id
)

// Context keys for request-scoped log fields.
const (
	TraceIDKey    contextKey = "trace_id"
	SpanIDKey     contextKey = "span_id"
	RequestIDKey  contextKey = "request_id"
	ProviderKey   contextKey = "provider"
	ModelKey      contextKey = "model"
	CapabilityKey contextKey = "capability"
)

// WithTraceID injects trace ID into context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithSpanID injects span ID into context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// WithRequestID injects the request id. The router replaces it with the logical request id
// shared by every attempt.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithProvider injects the id of the provider serving the current attempt.
func WithProvider(ctx context.Context, providerID string) context.Context {
	return context.WithValue(ctx, ProviderKey, providerID)
}

// WithModel injects the model that served the current attempt.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ModelKey, model)
}

// WithCapability injects the requested capability.
func WithCapability(ctx context.Context, capability string) context.Context {
	return context.WithValue(ctx, CapabilityKey, capability)
}

// GetTraceID extracts trace ID from context.
func GetTraceID(ctx context.Context) string { return stringValue(ctx, TraceIDKey) }

// GetSpanID extracts span ID from context.
func GetSpanID(ctx context.Context) string { return stringValue(ctx, SpanIDKey) }

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string { return stringValue(ctx, RequestIDKey) }

// GetProvider extracts the provider id from context.
func GetProvider(ctx context.Context) string { return stringValue(ctx, ProviderKey) }

// GetModel extracts the model from context.
func GetModel(ctx context.Context) string { return stringValue(ctx, ModelKey) }

// GetCapability extracts the requested capability from context.
func GetCapability(ctx context.Context) string { return stringValue(ctx, CapabilityKey) }

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}

// GenerateTraceID returns a random 32 hex char trace id.
func GenerateTraceID() string {
	return randomHex(traceIDBytes)
}

// GenerateSpanID returns a random 16 hex char span id.
func GenerateSpanID() string {
	return randomHex(spanIDBytes)
}

// GenerateRequestID generates a unique request identifier (UUID).
func GenerateRequestID() string {
	return uuid.NewString()
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		id := uuid.New()
		return hex.EncodeToString(id[:])[:n*2]
	}
	return hex.EncodeToString(buf)
}
