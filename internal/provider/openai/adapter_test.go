package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/provider/openai"
)

const (
	chatCompletionJSON = `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o-mini-2024-07-18",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "hello back"}}],
		"usage": {"prompt_tokens": 1000, "completion_tokens": 1000, "total_tokens": 2000}
	}`

	imagesJSON = `{
		"created": 1700000000,
		"data": [{"url": "https://images.test/1.png", "revised_prompt": "a fluffy cat"}]
	}`

	embeddingsJSON = `{
		"object": "list",
		"model": "text-embedding-3-small",
		"data": [
			{"object": "embedding", "index": 0, "embedding": [0.1, 0.2, 0.3]},
			{"object": "embedding", "index": 1, "embedding": [0.4, 0.5, 0.6]}
		],
		"usage": {"prompt_tokens": 1000, "total_tokens": 1000}
	}`

	errorJSON = `{"error": {"message": "invalid model", "type": "invalid_request_error"}}`
)

// fakeAPI serves canned OpenAI responses and captures the last request body per path.
type fakeAPI struct {
	server *httptest.Server
	mu     sync.Mutex
	bodies map[string]map[string]any
	status int
}

func (a *fakeAPI) body(key string) map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bodies[key]
}

func (a *fakeAPI) capture(key string, body map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bodies[key] = body
}

func newFakeAPI(t *testing.T, status int) *fakeAPI {
	t.Helper()

	api := &fakeAPI{bodies: make(map[string]map[string]any), status: status}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body := map[string]any{}
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")

		if api.status != http.StatusOK {
			w.WriteHeader(api.status)
			_, _ = w.Write([]byte(errorJSON))
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			api.capture("chat", body)
			_, _ = w.Write([]byte(chatCompletionJSON))
		case strings.HasSuffix(r.URL.Path, "/images/generations"):
			api.capture("images", body)
			_, _ = w.Write([]byte(imagesJSON))
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			api.capture("embeddings", body)
			_, _ = w.Write([]byte(embeddingsJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(api.server.Close)

	return api
}

func newProvider(t *testing.T, api *fakeAPI) *openai.Provider {
	t.Helper()

	registry := domain.NewInMemoryPricingRegistry()
	require.NoError(t, openai.RegisterPricing(context.Background(), registry))

	provider, err := openai.NewProvider(openai.Config{
		APIKey:     "test-key",
		BaseURL:    api.server.URL + "/v1",
		Timeout:    5,
		MaxRetries: 1,
	}, domain.NewStandardCostCalculator(registry))
	require.NoError(t, err)

	return provider
}

func TestNewProvider_Success(t *testing.T) {
	config := openai.Config{
		APIKey:     "test-api-key",
		BaseURL:    "https://api.openai.com/v1",
		Timeout:    60,
		MaxRetries: 3,
	}

	provider, err := openai.NewProvider(config, nil)

	require.NoError(t, err)
	require.NotNil(t, provider)

	info := provider.Info()
	require.Equal(t, "openai", info.ID)
	require.True(t, info.Supports(domain.CapabilityTextGeneration))
	require.True(t, info.Supports(domain.CapabilityVisionAnalysis))
	require.True(t, info.Supports(domain.CapabilityImageGeneration))
	require.True(t, info.Supports(domain.CapabilityEmbeddings))
	require.False(t, info.Supports(domain.CapabilitySearch))
}

func TestNewProvider_MissingAPIKey(t *testing.T) {
	provider, err := openai.NewProvider(openai.Config{}, nil)

	require.Error(t, err)
	require.Nil(t, provider)
	require.Contains(t, err.Error(), "OpenAI API key is required")
}

func TestNewProvider_CustomID(t *testing.T) {
	provider, err := openai.NewProvider(openai.Config{APIKey: "k", ProviderID: "openai-eu"}, nil)

	require.NoError(t, err)
	require.Equal(t, "openai-eu", provider.Info().ID)
}

func TestRegisterPricing(t *testing.T) {
	registry := domain.NewInMemoryPricingRegistry()
	ctx := context.Background()

	require.NoError(t, openai.RegisterPricing(ctx, registry))

	for _, model := range openai.SupportedModels() {
		t.Run("should price "+model, func(t *testing.T) {
			pricing, err := registry.GetPricing(ctx, model)
			require.NoError(t, err)
			require.Positive(t, pricing.InputCostPer1K+pricing.OutputCostPer1K+pricing.CostPerImage)
		})
	}
}

func TestProvider_TextGeneration(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK)
	provider := newProvider(t, api)

	resp, err := provider.Execute(context.Background(), &domain.TextGenerationRequest{
		SystemPrompt: "be brief",
		Prompt:       "hello",
		MaxTokens:    64,
		Temperature:  0.2,
	})
	require.NoError(t, err)

	text, ok := resp.(*domain.TextGenerationResponse)
	require.True(t, ok)
	require.Equal(t, "chatcmpl-1", text.ID)
	require.Equal(t, "openai", text.ProviderID)
	require.Equal(t, "gpt-4o-mini-2024-07-18", text.Model)
	require.Equal(t, "hello back", text.Content)
	require.Equal(t, "stop", text.FinishReason)
	require.Equal(t, 2000, text.TokensUsed)
	require.InDelta(t, 0.00075, text.Cost, 1e-9) // 1K in at 0.00015 + 1K out at 0.0006
	require.False(t, text.Timestamp.IsZero())

	body := api.body("chat")
	require.Equal(t, "gpt-4o-mini", body["model"])
	require.InDelta(t, 64, body["max_tokens"], 0)
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
}

func TestProvider_VisionAnalysis(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK)
	provider := newProvider(t, api)

	resp, err := provider.Execute(context.Background(), &domain.VisionAnalysisRequest{
		ImageURL: "https://images.test/cat.png",
		Prompt:   "what is this?",
		Detail:   "low",
	})
	require.NoError(t, err)

	vision, ok := resp.(*domain.VisionAnalysisResponse)
	require.True(t, ok)
	require.Equal(t, "hello back", vision.Analysis)
	require.Equal(t, "https://images.test/cat.png", vision.Details["image_url"])

	body := api.body("chat")
	require.Equal(t, "gpt-4o", body["model"])

	raw, err := json.Marshal(body["messages"])
	require.NoError(t, err)
	require.Contains(t, string(raw), "https://images.test/cat.png")
	require.Contains(t, string(raw), "what is this?")
}

func TestProvider_ImageGeneration(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK)
	provider := newProvider(t, api)

	resp, err := provider.Execute(context.Background(), &domain.ImageGenerationRequest{
		Prompt:   "a cat",
		Quantity: 1,
		Size:     "1024x1024",
	})
	require.NoError(t, err)

	images, ok := resp.(*domain.ImageGenerationResponse)
	require.True(t, ok)
	require.Equal(t, []string{"https://images.test/1.png"}, images.Images)
	require.Equal(t, []string{"a fluffy cat"}, images.Revisions)
	require.Equal(t, "dall-e-3", images.Model)
	require.InDelta(t, 0.04, images.Cost, 1e-9)
	require.NotEmpty(t, images.ID)

	require.Equal(t, "a cat", api.body("images")["prompt"])
	require.Equal(t, "1024x1024", api.body("images")["size"])
}

func TestProvider_Embeddings(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK)
	provider := newProvider(t, api)

	resp, err := provider.Execute(context.Background(), &domain.EmbeddingRequest{Texts: []string{"a", "b"}})
	require.NoError(t, err)

	embeddings, ok := resp.(*domain.EmbeddingResponse)
	require.True(t, ok)
	require.Len(t, embeddings.Embeddings, 2)
	require.Equal(t, 3, embeddings.Dimensions)
	require.Equal(t, 1000, embeddings.TokensUsed)
	require.InDelta(t, 0.00002, embeddings.Cost, 1e-12)
}

func TestProvider_Failures(t *testing.T) {
	t.Run("should wrap API errors as provider errors", func(t *testing.T) {
		api := newFakeAPI(t, http.StatusBadRequest)
		provider := newProvider(t, api)

		resp, err := provider.Execute(context.Background(), &domain.TextGenerationRequest{Prompt: "hello"})

		require.Nil(t, resp)
		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Equal(t, "openai", providerErr.ProviderID)
		require.Contains(t, providerErr.Message, "invalid model")
	})

	t.Run("should reject unsupported capabilities", func(t *testing.T) {
		provider := newProvider(t, newFakeAPI(t, http.StatusOK))

		_, err := provider.Execute(context.Background(), &domain.SearchRequest{Query: "golang"})

		require.ErrorIs(t, err, domain.ErrProviderExecution)
		require.ErrorIs(t, err, domain.ErrInvalidRequestShape)
	})

	t.Run("should reject nil request", func(t *testing.T) {
		provider := newProvider(t, newFakeAPI(t, http.StatusOK))

		resp, err := provider.Execute(context.Background(), nil)

		require.Nil(t, resp)
		require.Contains(t, err.Error(), "request cannot be nil")
	})
}
