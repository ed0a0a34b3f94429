package openai

import (
	"github.com/openai/openai-go"

	"github.com/davidbz/switchboard/internal/domain"
)

const (
	defaultTextModel      = string(openai.ChatModelGPT4oMini)
	defaultVisionModel    = string(openai.ChatModelGPT4o)
	defaultImageModel     = string(openai.ImageModelDallE3)
	defaultEmbeddingModel = string(openai.EmbeddingModelTextEmbedding3Small)
)

// Capabilities returns the capabilities served by the OpenAI provider.
func Capabilities() []domain.Capability {
	return []domain.Capability{
		domain.CapabilityTextGeneration,
		domain.CapabilityVisionAnalysis,
		domain.CapabilityImageGeneration,
		domain.CapabilityEmbeddings,
	}
}

// SupportedModels returns the list of models priced by the OpenAI provider.
func SupportedModels() []string {
	models := make([]string, 0, len(modelPricing()))
	for model := range modelPricing() {
		models = append(models, model)
	}
	return models
}

// pick returns requested when set, fallback otherwise.
func pick(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}
