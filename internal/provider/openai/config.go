package openai

// Config contains OpenAI provider configuration.
// Connection fields map to OpenAI SDK options:
//   - APIKey: Maps to option.WithAPIKey()
//   - BaseURL: Maps to option.WithBaseURL()
//   - Timeout: Maps to option.WithRequestTimeout() (in seconds)
//   - MaxRetries: Maps to option.WithMaxRetries()
//
// Model fields are the defaults used when a request does not name a model.
type Config struct {
	APIKey     string `env:"OPENAI_API_KEY"`
	BaseURL    string `env:"OPENAI_BASE_URL"    envDefault:"https://api.openai.com/v1"`
	Timeout    int    `env:"OPENAI_TIMEOUT"     envDefault:"60"`
	MaxRetries int    `env:"OPENAI_MAX_RETRIES" envDefault:"3"`

	ProviderID     string `env:"OPENAI_PROVIDER_ID"     envDefault:"openai"`
	TextModel      string `env:"OPENAI_TEXT_MODEL"      envDefault:"gpt-4o-mini"`
	VisionModel    string `env:"OPENAI_VISION_MODEL"    envDefault:"gpt-4o"`
	ImageModel     string `env:"OPENAI_IMAGE_MODEL"     envDefault:"dall-e-3"`
	EmbeddingModel string `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
}
