package domain

import (
	"fmt"
	"time"
)

// Capability is a kind of AI task a provider declares support for.
type Capability string

const (
	CapabilityTextGeneration   Capability = "text_generation"
	CapabilityImageGeneration  Capability = "image_generation"
	CapabilityVideoGeneration  Capability = "video_generation"
	CapabilitySpeechGeneration Capability = "speech_generation"
	CapabilityVisionAnalysis   Capability = "vision_analysis"
	CapabilitySearch           Capability = "search"
	CapabilityEmbeddings       Capability = "embeddings"
)

// Capabilities lists every known capability.
func Capabilities() []Capability {
	return []Capability{
		CapabilityTextGeneration,
		CapabilityImageGeneration,
		CapabilityVideoGeneration,
		CapabilitySpeechGeneration,
		CapabilityVisionAnalysis,
		CapabilitySearch,
		CapabilityEmbeddings,
	}
}

// ParseCapability converts a raw string into a known Capability.
func ParseCapability(raw string) (Capability, error) {
	for _, c := range Capabilities() {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown capability %q", ErrInvalidRequestShape, raw)
}

// RateLimit describes the provider's published request limits.
type RateLimit struct {
	RequestsPerMinute  int `json:"requests_per_minute,omitempty"`
	RequestsPerHour    int `json:"requests_per_hour,omitempty"`
	ConcurrentRequests int `json:"concurrent_requests,omitempty"`
	TokensPerMinute    int `json:"tokens_per_minute,omitempty"`
	TokensPerHour      int `json:"tokens_per_hour,omitempty"`
}

// ProviderInfo describes a registered provider. It does not change for the process lifetime.
type ProviderInfo struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Version            string       `json:"version,omitempty"`
	Capabilities       []Capability `json:"capabilities"`
	SupportedLanguages []string     `json:"supported_languages,omitempty"`
	RateLimit          RateLimit    `json:"rate_limit"`
}

// Supports reports whether the provider declares the capability.
func (i ProviderInfo) Supports(capability Capability) bool {
	for _, c := range i.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// SelectionConstraints guide provider selection. Nil fields fall back to defaults.
type SelectionConstraints struct {
	QualityWeight *float64 `json:"quality_weight,omitempty"`
	SpeedWeight   *float64 `json:"speed_weight,omitempty"`
	CostWeight    *float64 `json:"cost_weight,omitempty"`

	MaxResponseTimeMs *float64 `json:"max_response_time_ms,omitempty"`
	MaxCostPerRequest *float64 `json:"max_cost_per_request,omitempty"`
	MaxFailureRate    *float64 `json:"max_failure_rate,omitempty"`

	PreferredProviders []string `json:"preferred_providers,omitempty"`
	ExcludeProviders   []string `json:"exclude_providers,omitempty"`
}

// ProviderMetrics is a derived view of a provider's performance.
// With zero requests SuccessRate is 1 and ErrorRate is 0.
type ProviderMetrics struct {
	ProviderID            string    `json:"provider_id"`
	TotalRequests         int64     `json:"total_requests"`
	SuccessfulRequests    int64     `json:"successful_requests"`
	FailedRequests        int64     `json:"failed_requests"`
	AverageResponseTimeMs float64   `json:"average_response_time_ms"`
	MedianResponseTimeMs  float64   `json:"median_response_time_ms"`
	P95ResponseTimeMs     float64   `json:"p95_response_time_ms"`
	P99ResponseTimeMs     float64   `json:"p99_response_time_ms"`
	AverageCost           float64   `json:"average_cost"`
	TotalCost             float64   `json:"total_cost"`
	SuccessRate           float64   `json:"success_rate"`
	ErrorRate             float64   `json:"error_rate"`
	AverageUserRating     float64   `json:"average_user_rating,omitempty"`
	LastUpdated           time.Time `json:"last_updated"`
}

// NewProviderMetrics returns the optimistic metrics of a provider with no recorded requests.
func NewProviderMetrics(providerID string, now time.Time) ProviderMetrics {
	return ProviderMetrics{
		ProviderID:  providerID,
		SuccessRate: 1,
		ErrorRate:   0,
		LastUpdated: now,
	}
}

// ExecutionResult is one completed attempt against a provider.
// Only UserRating and Feedback may change after creation.
type ExecutionResult struct {
	ID             string     `json:"id"`
	RequestID      string     `json:"request_id"`
	ProviderID     string     `json:"provider_id"`
	ModelID        string     `json:"model_id,omitempty"`
	Capability     Capability `json:"capability,omitempty"`
	Success        bool       `json:"success"`
	ResponseTimeMs int64      `json:"response_time_ms"`
	Cost           float64    `json:"cost"`
	TokensUsed     int        `json:"tokens_used,omitempty"`
	Error          string     `json:"error,omitempty"`
	UserRating     *float64   `json:"user_rating,omitempty"`
	Feedback       *string    `json:"feedback,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// Strategy selects how the best provider is chosen from historical metrics.
type Strategy string

const (
	StrategyQuality Strategy = "quality"
	StrategySpeed   Strategy = "speed"
	StrategyCost    Strategy = "cost"
)

// ParseStrategy converts a raw string into a Strategy. Empty defaults to quality.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(raw) {
	case "":
		return StrategyQuality, nil
	case StrategyQuality, StrategySpeed, StrategyCost:
		return Strategy(raw), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", raw)
	}
}

// CostSummary aggregates successful spend for one provider.
type CostSummary struct {
	ProviderID        string  `json:"provider_id"`
	TotalCost         float64 `json:"total_cost"`
	RequestCount      int64   `json:"request_count"`
	AvgCostPerRequest float64 `json:"avg_cost_per_request"`
}

// TrendPoint is one non-empty bucket of a performance trend series.
type TrendPoint struct {
	Date              time.Time `json:"date"`
	SuccessRate       float64   `json:"success_rate"`
	AvgResponseTimeMs float64   `json:"avg_response_time_ms"`
	AvgCost           float64   `json:"avg_cost"`
	RequestCount      int       `json:"request_count"`
}
