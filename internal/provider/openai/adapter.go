// Package openai provides an adapter for the OpenAI API using the official SDK.
// It implements the domain.Provider interface for text generation, vision analysis,
// image generation and embeddings, and prices every call through the cost calculator.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/observability"
)

const (
	providerName = "openai"
	version      = "1"
)

// Provider implements the domain.Provider interface for OpenAI.
type Provider struct {
	client     openai.Client
	id         string
	calculator domain.CostCalculator

	textModel      string
	visionModel    string
	imageModel     string
	embeddingModel string
}

// NewProvider creates a new OpenAI provider. The calculator may be nil, in which case costs are zero.
func NewProvider(config Config, calculator domain.CostCalculator) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	if config.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	return &Provider{
		client:         openai.NewClient(opts...),
		id:             pick(config.ProviderID, providerName),
		calculator:     calculator,
		textModel:      pick(config.TextModel, defaultTextModel),
		visionModel:    pick(config.VisionModel, defaultVisionModel),
		imageModel:     pick(config.ImageModel, defaultImageModel),
		embeddingModel: pick(config.EmbeddingModel, defaultEmbeddingModel),
	}, nil
}

// Info describes the provider.
func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		ID:           p.id,
		Name:         "OpenAI",
		Version:      version,
		Capabilities: Capabilities(),
	}
}

// Execute dispatches the request to the matching OpenAI endpoint.
func (p *Provider) Execute(ctx context.Context, req domain.Request) (domain.Response, error) {
	start := time.Now()

	if req == nil {
		return nil, p.fail(start, errors.New("request cannot be nil"))
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API", observability.String("capability", string(req.Capability())))

	var (
		resp domain.Response
		err  error
	)

	switch r := req.(type) {
	case *domain.TextGenerationRequest:
		resp, err = p.generateText(ctx, r)
	case *domain.VisionAnalysisRequest:
		resp, err = p.analyzeImage(ctx, r)
	case *domain.ImageGenerationRequest:
		resp, err = p.generateImage(ctx, r)
	case *domain.EmbeddingRequest:
		resp, err = p.embed(ctx, r)
	default:
		err = fmt.Errorf("%w: capability %s is not supported by openai provider",
			domain.ErrInvalidRequestShape, req.Capability())
	}

	if err != nil {
		logger.Error("OpenAI API call failed", observability.Error(err))
		return nil, p.fail(start, err)
	}

	meta := resp.Meta()
	meta.ProviderID = p.id
	meta.Timestamp = time.Now()

	logger.Debug("OpenAI API call succeeded",
		observability.String("model", meta.Model),
		observability.Int("tokens_used", meta.TokensUsed),
		observability.Float64("cost", meta.Cost),
	)

	return resp, nil
}

func (p *Provider) generateText(ctx context.Context, req *domain.TextGenerationRequest) (domain.Response, error) {
	model := pick(req.Model, p.textModel)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI chat completion failed: %w", err)
	}

	content, finishReason := firstChoice(completion)

	return &domain.TextGenerationResponse{
		ResponseMeta: p.meta(ctx, completion.ID, model, completion.Model, chatUsage(completion)),
		Content:      content,
		FinishReason: finishReason,
	}, nil
}

func (p *Provider) analyzeImage(ctx context.Context, req *domain.VisionAnalysisRequest) (domain.Response, error) {
	model := pick(req.Model, p.visionModel)

	image := openai.ChatCompletionContentPartImageImageURLParam{URL: req.ImageURL}
	if req.Detail != "" {
		image.Detail = req.Detail
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
		openai.ImageContentPart(image),
	}

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI vision analysis failed: %w", err)
	}

	analysis, finishReason := firstChoice(completion)

	return &domain.VisionAnalysisResponse{
		ResponseMeta: p.meta(ctx, completion.ID, model, completion.Model, chatUsage(completion)),
		Analysis:     analysis,
		Details: map[string]any{
			"image_url":     req.ImageURL,
			"finish_reason": finishReason,
		},
	}, nil
}

func (p *Provider) generateImage(ctx context.Context, req *domain.ImageGenerationRequest) (domain.Response, error) {
	model := pick(req.Model, p.imageModel)

	//nolint:exhaustruct // OpenAI SDK struct has many optional fields
	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(model),
	}

	if req.Quantity > 0 {
		params.N = openai.Int(int64(req.Quantity))
	}

	if req.Size != "" {
		params.Size = openai.ImageGenerateParamsSize(req.Size)
	}

	if req.Quality != "" {
		params.Quality = openai.ImageGenerateParamsQuality(req.Quality)
	}

	if req.Style != "" {
		params.Style = openai.ImageGenerateParamsStyle(req.Style)
	}

	result, err := p.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI image generation failed: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, errors.New("no images returned")
	}

	images := make([]string, 0, len(result.Data))
	revisions := make([]string, 0, len(result.Data))
	for _, image := range result.Data {
		if image.URL != "" {
			images = append(images, image.URL)
		} else {
			images = append(images, image.B64JSON)
		}
		if image.RevisedPrompt != "" {
			revisions = append(revisions, image.RevisedPrompt)
		}
	}

	return &domain.ImageGenerationResponse{
		ResponseMeta: p.meta(ctx, uuid.NewString(), model, "", domain.Usage{Images: len(images)}),
		Images:       images,
		Revisions:    revisions,
	}, nil
}

func (p *Provider) embed(ctx context.Context, req *domain.EmbeddingRequest) (domain.Response, error) {
	model := pick(req.Model, p.embeddingModel)

	//nolint:exhaustruct // OpenAI SDK struct has many optional fields
	result, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: req.Texts,
		},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, errors.New("no embeddings returned")
	}

	vectors := make([][]float64, 0, len(result.Data))
	for _, item := range result.Data {
		vectors = append(vectors, item.Embedding)
	}

	usage := domain.Usage{PromptTokens: int(result.Usage.PromptTokens)}

	return &domain.EmbeddingResponse{
		ResponseMeta: p.meta(ctx, uuid.NewString(), model, result.Model, usage),
		Embeddings:   vectors,
		Dimensions:   len(vectors[0]),
	}, nil
}

// meta prices the served snapshot when the API reports one.
func (p *Provider) meta(ctx context.Context, id, requested, served string, usage domain.Usage) domain.ResponseMeta {
	model := pick(served, requested)

	return domain.ResponseMeta{
		ID:         id,
		Model:      model,
		Cost:       p.cost(ctx, model, usage),
		TokensUsed: usage.TotalTokens(),
	}
}

func (p *Provider) cost(ctx context.Context, model string, usage domain.Usage) float64 {
	if p.calculator == nil {
		return 0
	}

	cost, err := p.calculator.Calculate(ctx, model, usage)
	if err != nil {
		observability.FromContext(ctx).Warn("failed to calculate cost", observability.Error(err))
		return 0
	}
	return cost
}

func (p *Provider) fail(start time.Time, err error) error {
	return &domain.ProviderError{
		ProviderID:     p.id,
		Message:        err.Error(),
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Err:            err,
	}
}

func firstChoice(completion *openai.ChatCompletion) (string, string) {
	if len(completion.Choices) == 0 {
		return "", ""
	}
	choice := completion.Choices[0]
	return choice.Message.Content, string(choice.FinishReason)
}

func chatUsage(completion *openai.ChatCompletion) domain.Usage {
	return domain.Usage{
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
	}
}
