package domain

import (
	"context"
	"errors"
	"fmt"
)

const tokensPerK = 1000.0

// StandardCostCalculator prices token and image usage from a PricingRegistry.
type StandardCostCalculator struct {
	pricing PricingRegistry
}

// NewStandardCostCalculator creates a new cost calculator.
func NewStandardCostCalculator(registry PricingRegistry) *StandardCostCalculator {
	return &StandardCostCalculator{
		pricing: registry,
	}
}

// Calculate returns the USD cost of usage on model. Models without pricing cost 0 so
// an unpriced model never fails a request.
func (c *StandardCostCalculator) Calculate(ctx context.Context, model string, usage Usage) (float64, error) {
	if model == "" {
		return 0, errors.New("model cannot be empty")
	}

	config, err := c.pricing.GetPricing(ctx, model)
	if errors.Is(err, ErrPricingNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up pricing: %w", err)
	}

	tokens := float64(usage.PromptTokens)/tokensPerK*config.InputCostPer1K +
		float64(usage.CompletionTokens)/tokensPerK*config.OutputCostPer1K

	return tokens + float64(usage.Images)*config.CostPerImage, nil
}
