package domain_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/switchboard/internal/domain"
)

func TestDecodeRequest(t *testing.T) {
	t.Run("should decode text generation payload", func(t *testing.T) {
		req, err := domain.DecodeRequest(domain.CapabilityTextGeneration,
			json.RawMessage(`{"id":"r-1","prompt":"hello","max_tokens":10}`))

		require.NoError(t, err)
		text, ok := req.(*domain.TextGenerationRequest)
		require.True(t, ok)
		require.Equal(t, "hello", text.Prompt)
		require.Equal(t, "r-1", req.RequestID())
		require.Equal(t, domain.CapabilityTextGeneration, req.Capability())
	})

	t.Run("should decode vision payload", func(t *testing.T) {
		req, err := domain.DecodeRequest(domain.CapabilityVisionAnalysis,
			json.RawMessage(`{"image_url":"https://example.com/cat.png","prompt":"what is this"}`))

		require.NoError(t, err)
		_, ok := req.(*domain.VisionAnalysisRequest)
		require.True(t, ok)
	})

	t.Run("should reject unknown capability", func(t *testing.T) {
		_, err := domain.DecodeRequest(domain.Capability("telepathy"), json.RawMessage(`{}`))

		require.ErrorIs(t, err, domain.ErrInvalidRequestShape)
	})

	t.Run("should reject payload missing required fields", func(t *testing.T) {
		_, err := domain.DecodeRequest(domain.CapabilityVisionAnalysis,
			json.RawMessage(`{"prompt":"no image"}`))

		require.ErrorIs(t, err, domain.ErrInvalidRequestShape)
		require.Contains(t, err.Error(), "ImageURL")
	})

	t.Run("should reject malformed json", func(t *testing.T) {
		_, err := domain.DecodeRequest(domain.CapabilityTextGeneration, json.RawMessage(`{"prompt":`))

		require.ErrorIs(t, err, domain.ErrInvalidRequestShape)
	})

	t.Run("should reject empty payload", func(t *testing.T) {
		_, err := domain.DecodeRequest(domain.CapabilityEmbeddings, nil)

		require.ErrorIs(t, err, domain.ErrInvalidRequestShape)
	})
}

func TestValidateRequest(t *testing.T) {
	t.Run("should reject mismatched capability tag", func(t *testing.T) {
		err := domain.ValidateRequest(&domain.TextGenerationRequest{Prompt: "hi"}, domain.CapabilityImageGeneration)

		require.ErrorIs(t, err, domain.ErrInvalidRequestShape)
		require.Contains(t, err.Error(), "text_generation")
	})

	t.Run("should reject nil request", func(t *testing.T) {
		err := domain.ValidateRequest(nil, domain.CapabilityTextGeneration)

		require.ErrorIs(t, err, domain.ErrInvalidRequestShape)
	})

	t.Run("should accept video request with only an image", func(t *testing.T) {
		err := domain.ValidateRequest(&domain.VideoGenerationRequest{ImageURL: "https://example.com/a.png"},
			domain.CapabilityVideoGeneration)

		require.NoError(t, err)
	})

	t.Run("should reject empty embedding texts", func(t *testing.T) {
		err := domain.ValidateRequest(&domain.EmbeddingRequest{Texts: []string{}}, domain.CapabilityEmbeddings)

		require.ErrorIs(t, err, domain.ErrInvalidRequestShape)
	})
}

func TestParseCapability(t *testing.T) {
	for _, c := range domain.Capabilities() {
		parsed, err := domain.ParseCapability(string(c))
		require.NoError(t, err)
		require.Equal(t, c, parsed)
	}

	_, err := domain.ParseCapability("unknown")
	require.ErrorIs(t, err, domain.ErrInvalidRequestShape)
}

func TestParseStrategy(t *testing.T) {
	s, err := domain.ParseStrategy("")
	require.NoError(t, err)
	require.Equal(t, domain.StrategyQuality, s)

	s, err = domain.ParseStrategy("speed")
	require.NoError(t, err)
	require.Equal(t, domain.StrategySpeed, s)

	_, err = domain.ParseStrategy("random")
	require.Error(t, err)
}

func TestErrors(t *testing.T) {
	t.Run("should match provider errors against the sentinel", func(t *testing.T) {
		cause := errors.New("timeout")
		err := fmt.Errorf("attempt: %w", &domain.ProviderError{ProviderID: "a", Message: "timeout", Err: cause})

		require.ErrorIs(t, err, domain.ErrProviderExecution)
		require.ErrorIs(t, err, cause)

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Equal(t, "a", providerErr.ProviderID)
	})

	t.Run("should carry the last failure message when exhausted", func(t *testing.T) {
		last := &domain.ProviderError{ProviderID: "c", Message: "boom"}
		err := &domain.FailoverExhaustedError{Attempts: 3, Last: last}

		require.ErrorIs(t, err, domain.ErrFailoverExhausted)
		require.ErrorIs(t, err, domain.ErrProviderExecution)
		require.Contains(t, err.Error(), "after 3 retries")
		require.Contains(t, err.Error(), "boom")
	})
}
