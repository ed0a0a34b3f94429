package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request is a capability-tagged payload. The set of implementations is closed.
type Request interface {
	// Capability returns the tag of the request.
	Capability() Capability

	// RequestID returns the client-supplied identifier, if any.
	RequestID() string

	isRequest()
}

// TextGenerationRequest asks for generated text from a prompt.
type TextGenerationRequest struct {
	ID           string  `json:"id,omitempty"`
	Prompt       string  `json:"prompt"                  validate:"required"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Model        string  `json:"model,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"    validate:"gte=0"`
	Temperature  float64 `json:"temperature,omitempty"   validate:"gte=0,lte=2"`
	TopP         float64 `json:"top_p,omitempty"         validate:"gte=0,lte=1"`
}

// ImageGenerationRequest asks for one or more generated images.
type ImageGenerationRequest struct {
	ID             string `json:"id,omitempty"`
	Prompt         string `json:"prompt"                    validate:"required"`
	Model          string `json:"model,omitempty"`
	Size           string `json:"size,omitempty"`
	Quantity       int    `json:"quantity,omitempty"        validate:"gte=0,lte=10"`
	Quality        string `json:"quality,omitempty"         validate:"omitempty,oneof=standard hd"`
	Style          string `json:"style,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

// VideoGenerationRequest asks for a generated video from a prompt or a source image.
type VideoGenerationRequest struct {
	ID              string  `json:"id,omitempty"`
	Prompt          string  `json:"prompt,omitempty"           validate:"required_without=ImageURL"`
	ImageURL        string  `json:"image_url,omitempty"        validate:"omitempty,url"`
	VideoURL        string  `json:"video_url,omitempty"        validate:"omitempty,url"`
	DurationSeconds float64 `json:"duration_seconds,omitempty" validate:"gte=0"`
	Model           string  `json:"model,omitempty"`
	Resolution      string  `json:"resolution,omitempty"`
	MotionIntensity float64 `json:"motion_intensity,omitempty" validate:"gte=0,lte=1"`
}

// SpeechGenerationRequest asks for synthesized speech.
type SpeechGenerationRequest struct {
	ID        string  `json:"id,omitempty"`
	Text      string  `json:"text"                validate:"required"`
	Language  string  `json:"language,omitempty"`
	Voice     string  `json:"voice,omitempty"`
	Model     string  `json:"model,omitempty"`
	Speed     float64 `json:"speed,omitempty"     validate:"gte=0"`
	Stability float64 `json:"stability,omitempty" validate:"gte=0,lte=1"`
}

// VisionAnalysisRequest asks for an analysis of an image.
type VisionAnalysisRequest struct {
	ID       string `json:"id,omitempty"`
	ImageURL string `json:"image_url"        validate:"required,url"`
	Prompt   string `json:"prompt"           validate:"required"`
	Model    string `json:"model,omitempty"`
	Detail   string `json:"detail,omitempty" validate:"omitempty,oneof=low high auto"`
}

// SearchRequest asks for web search results.
type SearchRequest struct {
	ID            string `json:"id,omitempty"`
	Query         string `json:"query"                    validate:"required"`
	Model         string `json:"model,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"    validate:"gte=0"`
	IncludeAnswer bool   `json:"include_answer,omitempty"`
}

// EmbeddingRequest asks for vector embeddings of texts.
type EmbeddingRequest struct {
	ID    string   `json:"id,omitempty"`
	Texts []string `json:"texts"           validate:"required,min=1,dive,required"`
	Model string   `json:"model,omitempty"`
}

func (r *TextGenerationRequest) Capability() Capability   { return CapabilityTextGeneration }
func (r *ImageGenerationRequest) Capability() Capability  { return CapabilityImageGeneration }
func (r *VideoGenerationRequest) Capability() Capability  { return CapabilityVideoGeneration }
func (r *SpeechGenerationRequest) Capability() Capability { return CapabilitySpeechGeneration }
func (r *VisionAnalysisRequest) Capability() Capability   { return CapabilityVisionAnalysis }
func (r *SearchRequest) Capability() Capability           { return CapabilitySearch }
func (r *EmbeddingRequest) Capability() Capability        { return CapabilityEmbeddings }

func (r *TextGenerationRequest) RequestID() string   { return r.ID }
func (r *ImageGenerationRequest) RequestID() string  { return r.ID }
func (r *VideoGenerationRequest) RequestID() string  { return r.ID }
func (r *SpeechGenerationRequest) RequestID() string { return r.ID }
func (r *VisionAnalysisRequest) RequestID() string   { return r.ID }
func (r *SearchRequest) RequestID() string           { return r.ID }
func (r *EmbeddingRequest) RequestID() string        { return r.ID }

func (*TextGenerationRequest) isRequest()   {}
func (*ImageGenerationRequest) isRequest()  {}
func (*VideoGenerationRequest) isRequest()  {}
func (*SpeechGenerationRequest) isRequest() {}
func (*VisionAnalysisRequest) isRequest()   {}
func (*SearchRequest) isRequest()           {}
func (*EmbeddingRequest) isRequest()        {}

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest checks that req is tagged with capability and that its payload is well formed.
func ValidateRequest(req Request, capability Capability) error {
	if req == nil {
		return fmt.Errorf("%w: request cannot be nil", ErrInvalidRequestShape)
	}

	if req.Capability() != capability {
		return fmt.Errorf("%w: request tagged %s sent for capability %s",
			ErrInvalidRequestShape, req.Capability(), capability)
	}

	if err := validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			fields := make([]string, 0, len(validationErrs))
			for _, fe := range validationErrs {
				fields = append(fields, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequestShape, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidRequestShape, err)
	}

	return nil
}

// DecodeRequest decodes a JSON payload into the request type matching capability.
func DecodeRequest(capability Capability, payload json.RawMessage) (Request, error) {
	var req Request

	switch capability {
	case CapabilityTextGeneration:
		req = &TextGenerationRequest{}
	case CapabilityImageGeneration:
		req = &ImageGenerationRequest{}
	case CapabilityVideoGeneration:
		req = &VideoGenerationRequest{}
	case CapabilitySpeechGeneration:
		req = &SpeechGenerationRequest{}
	case CapabilityVisionAnalysis:
		req = &VisionAnalysisRequest{}
	case CapabilitySearch:
		req = &SearchRequest{}
	case CapabilityEmbeddings:
		req = &EmbeddingRequest{}
	default:
		return nil, fmt.Errorf("%w: unknown capability %q", ErrInvalidRequestShape, capability)
	}

	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidRequestShape)
	}

	if err := json.Unmarshal(payload, req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequestShape, err)
	}

	if err := ValidateRequest(req, capability); err != nil {
		return nil, err
	}

	return req, nil
}
