// Package echo provides a testing provider that echoes back its input.
// It implements the domain.Provider interface for every capability without making
// external calls, and can simulate latency, cost and failures for local failover drills.
package echo

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/observability"
)

const (
	providerName = "echo"
	modelName    = "echo4"
	version      = "1.0"

	embeddingDimensions  = 8
	defaultVideoSeconds  = 5.0
	defaultResolution    = "1280x720"
	speechWordsPerSecond = 2.5
)

var errSimulatedFailure = errors.New("simulated echo failure")

// Provider implements the domain.Provider interface for echo testing.
type Provider struct {
	id          string
	cost        float64
	failureRate float64
	delay       time.Duration
	calculator  domain.CostCalculator
}

// NewProvider creates a new echo provider. The calculator may be nil.
func NewProvider(config Config, calculator domain.CostCalculator) *Provider {
	id := config.ID
	if id == "" {
		id = providerName
	}

	return &Provider{
		id:          id,
		cost:        config.Cost,
		failureRate: config.FailureRate,
		delay:       config.Delay,
		calculator:  calculator,
	}
}

// Info describes the provider. Echo supports every capability.
func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		ID:           p.id,
		Name:         "Echo",
		Version:      version,
		Capabilities: domain.Capabilities(),
	}
}

// Execute echoes the request back as a response of the matching capability.
func (p *Provider) Execute(ctx context.Context, req domain.Request) (domain.Response, error) {
	start := time.Now()

	if req == nil {
		return nil, p.fail(start, errors.New("request cannot be nil"))
	}

	logger := observability.FromContext(ctx)
	logger.Debug("echoing request", observability.String("capability", string(req.Capability())))

	if err := p.wait(ctx); err != nil {
		return nil, p.fail(start, err)
	}

	if p.failureRate > 0 && rand.Float64() < p.failureRate { //nolint:gosec // not security sensitive
		return nil, p.fail(start, errSimulatedFailure)
	}

	resp, usage, err := respond(req)
	if err != nil {
		return nil, p.fail(start, err)
	}

	meta := resp.Meta()
	meta.ID = fmt.Sprintf("echo-%d", time.Now().UnixNano())
	meta.ProviderID = p.id
	meta.Model = modelName
	meta.Cost = p.cost + p.usageCost(ctx, usage)
	meta.TokensUsed = usage.TotalTokens()
	meta.Timestamp = time.Now()

	logger.Debug("echo completed",
		observability.Int("prompt_tokens", usage.PromptTokens),
		observability.Int("completion_tokens", usage.CompletionTokens),
		observability.Float64("cost", meta.Cost),
	)

	return resp, nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Provider) usageCost(ctx context.Context, usage domain.Usage) float64 {
	if p.calculator == nil {
		return 0
	}

	cost, err := p.calculator.Calculate(ctx, modelName, usage)
	if err != nil {
		observability.FromContext(ctx).Debug("echo pricing unavailable", observability.Error(err))
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

func respond(req domain.Request) (domain.Response, domain.Usage, error) {
	switch r := req.(type) {
	case *domain.TextGenerationRequest:
		content := buildEchoContent(r.SystemPrompt, r.Prompt)
		tokens := countTokens(content)
		return &domain.TextGenerationResponse{
			Content:      content,
			FinishReason: "stop",
		}, domain.Usage{PromptTokens: tokens, CompletionTokens: tokens}, nil

	case *domain.ImageGenerationRequest:
		n := max(r.Quantity, 1)
		images := make([]string, 0, n)
		revisions := make([]string, 0, n)
		for i := range n {
			images = append(images, fmt.Sprintf("echo://image/%d?prompt=%s", i, url.QueryEscape(r.Prompt)))
			revisions = append(revisions, r.Prompt)
		}
		return &domain.ImageGenerationResponse{
			Images:    images,
			Revisions: revisions,
		}, domain.Usage{PromptTokens: countTokens(r.Prompt), Images: n}, nil

	case *domain.VideoGenerationRequest:
		duration := r.DurationSeconds
		if duration <= 0 {
			duration = defaultVideoSeconds
		}
		resolution := r.Resolution
		if resolution == "" {
			resolution = defaultResolution
		}
		return &domain.VideoGenerationResponse{
			VideoURL:        "echo://video?prompt=" + url.QueryEscape(r.Prompt),
			DurationSeconds: duration,
			Resolution:      resolution,
			Format:          "mp4",
		}, domain.Usage{PromptTokens: countTokens(r.Prompt)}, nil

	case *domain.SpeechGenerationRequest:
		words := countTokens(r.Text)
		return &domain.SpeechGenerationResponse{
			AudioURL:        "echo://speech?text=" + url.QueryEscape(r.Text),
			DurationSeconds: float64(words) / speechWordsPerSecond,
			Format:          "mp3",
		}, domain.Usage{PromptTokens: words}, nil

	case *domain.VisionAnalysisRequest:
		analysis := fmt.Sprintf("[%s]: %s", r.ImageURL, r.Prompt)
		tokens := countTokens(analysis)
		return &domain.VisionAnalysisResponse{
			Analysis: analysis,
			Details:  map[string]any{"image_url": r.ImageURL, "detail": r.Detail},
		}, domain.Usage{PromptTokens: tokens, CompletionTokens: tokens}, nil

	case *domain.SearchRequest:
		resp := &domain.SearchResponse{
			Results: []domain.SearchResult{{
				Title:   r.Query,
				URL:     "echo://search?q=" + url.QueryEscape(r.Query),
				Snippet: r.Query,
				Score:   1,
			}},
		}
		if r.IncludeAnswer {
			resp.Answer = r.Query
		}
		return resp, domain.Usage{PromptTokens: countTokens(r.Query)}, nil

	case *domain.EmbeddingRequest:
		vectors := make([][]float64, 0, len(r.Texts))
		tokens := 0
		for _, text := range r.Texts {
			vectors = append(vectors, embed(text))
			tokens += countTokens(text)
		}
		return &domain.EmbeddingResponse{
			Embeddings: vectors,
			Dimensions: embeddingDimensions,
		}, domain.Usage{PromptTokens: tokens}, nil

	default:
		return nil, domain.Usage{}, fmt.Errorf("%w: unsupported request type %T", domain.ErrInvalidRequestShape, req)
	}
}

// buildEchoContent constructs the echo response from the prompts.
func buildEchoContent(systemPrompt, prompt string) string {
	var builder strings.Builder
	if systemPrompt != "" {
		builder.WriteString(fmt.Sprintf("[system]: %s\n", systemPrompt))
	}
	if prompt != "" {
		builder.WriteString(fmt.Sprintf("[user]: %s\n", prompt))
	}
	return builder.String()
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}

// embed derives a deterministic unit-range vector from text.
func embed(text string) []float64 {
	vector := make([]float64, embeddingDimensions)
	for i := range vector {
		h := fnv.New64a()
		_, _ = h.Write([]byte{byte(i)})
		_, _ = h.Write([]byte(text))
		vector[i] = float64(h.Sum64()%1000) / 1000
	}
	return vector
}
