package openai

import (
	"context"
	"fmt"

	"github.com/davidbz/switchboard/internal/domain"
)

const (
	// GPT-4o pricing per 1K tokens
	gpt4oInputCostPer1K  = 0.0025
	gpt4oOutputCostPer1K = 0.01

	// GPT-4o mini pricing per 1K tokens
	gpt4oMiniInputCostPer1K  = 0.00015
	gpt4oMiniOutputCostPer1K = 0.0006

	// GPT-4 Turbo pricing per 1K tokens
	gpt4TurboInputCostPer1K  = 0.01
	gpt4TurboOutputCostPer1K = 0.03

	// GPT-3.5 Turbo pricing per 1K tokens
	gpt35TurboInputCostPer1K  = 0.0005
	gpt35TurboOutputCostPer1K = 0.0015

	// Image pricing per standard 1024x1024 image
	dallE3CostPerImage = 0.04
	dallE2CostPerImage = 0.02

	// Embedding pricing per 1K input tokens
	embedding3SmallCostPer1K = 0.00002
	embedding3LargeCostPer1K = 0.00013
	embeddingAda002CostPer1K = 0.0001
)

func modelPricing() map[string]domain.PricingConfig {
	return map[string]domain.PricingConfig{
		"gpt-4o": {
			InputCostPer1K:  gpt4oInputCostPer1K,
			OutputCostPer1K: gpt4oOutputCostPer1K,
		},
		"gpt-4o-mini": {
			InputCostPer1K:  gpt4oMiniInputCostPer1K,
			OutputCostPer1K: gpt4oMiniOutputCostPer1K,
		},
		"gpt-4-turbo": {
			InputCostPer1K:  gpt4TurboInputCostPer1K,
			OutputCostPer1K: gpt4TurboOutputCostPer1K,
		},
		"gpt-3.5-turbo": {
			InputCostPer1K:  gpt35TurboInputCostPer1K,
			OutputCostPer1K: gpt35TurboOutputCostPer1K,
		},
		"dall-e-3": {
			CostPerImage: dallE3CostPerImage,
		},
		"dall-e-2": {
			CostPerImage: dallE2CostPerImage,
		},
		"text-embedding-3-small": {
			InputCostPer1K: embedding3SmallCostPer1K,
		},
		"text-embedding-3-large": {
			InputCostPer1K: embedding3LargeCostPer1K,
		},
		"text-embedding-ada-002": {
			InputCostPer1K: embeddingAda002CostPer1K,
		},
	}
}

// RegisterPricing registers OpenAI model pricing with the registry.
func RegisterPricing(ctx context.Context, registry domain.PricingRegistry) error {
	for model, config := range modelPricing() {
		if err := registry.RegisterPricing(ctx, model, config); err != nil {
			return fmt.Errorf("failed to register pricing for model %s: %w", model, err)
		}
	}

	return nil
}
