package domain

import "time"

// ResponseMeta is carried by every response regardless of capability.
type ResponseMeta struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider"`
	Model      string    `json:"model"`
	Cost       float64   `json:"cost"` // USD
	TokensUsed int       `json:"tokens_used,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Response is a capability-specific result. The set of implementations is closed.
type Response interface {
	// Meta returns the common response fields.
	Meta() *ResponseMeta

	// Capability returns the capability the response answers.
	Capability() Capability

	isResponse()
}

// TextGenerationResponse carries generated text.
type TextGenerationResponse struct {
	ResponseMeta
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// ImageGenerationResponse carries image URLs or base64 payloads.
type ImageGenerationResponse struct {
	ResponseMeta
	Images    []string `json:"images"`
	Revisions []string `json:"revisions,omitempty"`
}

// VideoGenerationResponse carries a generated video location.
type VideoGenerationResponse struct {
	ResponseMeta
	VideoURL        string  `json:"video_url"`
	DurationSeconds float64 `json:"duration_seconds"`
	Resolution      string  `json:"resolution"`
	Format          string  `json:"format"`
}

// SpeechGenerationResponse carries a synthesized audio location.
type SpeechGenerationResponse struct {
	ResponseMeta
	AudioURL        string  `json:"audio_url"`
	DurationSeconds float64 `json:"duration_seconds"`
	Format          string  `json:"format"`
}

// VisionAnalysisResponse carries an image analysis.
type VisionAnalysisResponse struct {
	ResponseMeta
	Analysis string         `json:"analysis"`
	Details  map[string]any `json:"details,omitempty"`
}

// SearchResult is a single hit in a SearchResponse.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// SearchResponse carries search hits and an optional synthesized answer.
type SearchResponse struct {
	ResponseMeta
	Results []SearchResult `json:"results"`
	Answer  string         `json:"answer,omitempty"`
}

// EmbeddingResponse carries one vector per input text.
type EmbeddingResponse struct {
	ResponseMeta
	Embeddings [][]float64 `json:"embeddings"`
	Dimensions int         `json:"dimensions"`
}

func (r *TextGenerationResponse) Meta() *ResponseMeta   { return &r.ResponseMeta }
func (r *ImageGenerationResponse) Meta() *ResponseMeta  { return &r.ResponseMeta }
func (r *VideoGenerationResponse) Meta() *ResponseMeta  { return &r.ResponseMeta }
func (r *SpeechGenerationResponse) Meta() *ResponseMeta { return &r.ResponseMeta }
func (r *VisionAnalysisResponse) Meta() *ResponseMeta   { return &r.ResponseMeta }
func (r *SearchResponse) Meta() *ResponseMeta           { return &r.ResponseMeta }
func (r *EmbeddingResponse) Meta() *ResponseMeta        { return &r.ResponseMeta }

func (*TextGenerationResponse) Capability() Capability   { return CapabilityTextGeneration }
func (*ImageGenerationResponse) Capability() Capability  { return CapabilityImageGeneration }
func (*VideoGenerationResponse) Capability() Capability  { return CapabilityVideoGeneration }
func (*SpeechGenerationResponse) Capability() Capability { return CapabilitySpeechGeneration }
func (*VisionAnalysisResponse) Capability() Capability   { return CapabilityVisionAnalysis }
func (*SearchResponse) Capability() Capability           { return CapabilitySearch }
func (*EmbeddingResponse) Capability() Capability        { return CapabilityEmbeddings }

func (*TextGenerationResponse) isResponse()   {}
func (*ImageGenerationResponse) isResponse()  {}
func (*VideoGenerationResponse) isResponse()  {}
func (*SpeechGenerationResponse) isResponse() {}
func (*VisionAnalysisResponse) isResponse()   {}
func (*SearchResponse) isResponse()           {}
func (*EmbeddingResponse) isResponse()        {}
