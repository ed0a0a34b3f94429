package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/switchboard/internal/observability"
	"github.com/davidbz/switchboard/internal/provider/echo"
	"github.com/davidbz/switchboard/internal/provider/openai"
	"github.com/davidbz/switchboard/internal/routing"
)

// History drivers.
const (
	HistoryDriverMemory   = "memory"
	HistoryDriverSQLite   = "sqlite"
	HistoryDriverPostgres = "postgres"
)

// Config represents the router configuration.
type Config struct {
	Log     observability.LogConfig
	Server  ServerConfig
	CORS    CORSConfig
	OpenAI  openai.Config
	Echo    echo.Config
	Routing RoutingConfig
	History HistoryConfig
	Redis   RedisConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"   validate:"gte=0"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"   validate:"gte=0"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// RoutingConfig contains selector weights and executor limits.
type RoutingConfig struct {
	QualityWeight     float64       `env:"ROUTING_QUALITY_WEIGHT"     envDefault:"0.5"   validate:"gte=0"`
	SpeedWeight       float64       `env:"ROUTING_SPEED_WEIGHT"       envDefault:"0.3"   validate:"gte=0"`
	CostWeight        float64       `env:"ROUTING_COST_WEIGHT"        envDefault:"0.2"   validate:"gte=0"`
	SpeedCeilingMs    float64       `env:"ROUTING_SPEED_CEILING_MS"   envDefault:"10000" validate:"gt=0"`
	CostCeiling       float64       `env:"ROUTING_COST_CEILING"       envDefault:"0.1"   validate:"gt=0"`
	MaxRetries        int           `env:"ROUTING_MAX_RETRIES"        envDefault:"3"     validate:"gt=0"`
	ParallelCount     int           `env:"ROUTING_PARALLEL_COUNT"     envDefault:"2"     validate:"gt=0"`
	AttemptTimeout    time.Duration `env:"ROUTING_ATTEMPT_TIMEOUT"    envDefault:"30s"   validate:"gt=0"`
	StrictConstraints bool          `env:"ROUTING_STRICT_CONSTRAINTS" envDefault:"false"`
}

// Selector converts the settings into a selector configuration.
func (c *RoutingConfig) Selector() routing.SelectorConfig {
	return routing.SelectorConfig{
		QualityWeight:     c.QualityWeight,
		SpeedWeight:       c.SpeedWeight,
		CostWeight:        c.CostWeight,
		SpeedCeilingMs:    c.SpeedCeilingMs,
		CostCeiling:       c.CostCeiling,
		StrictConstraints: c.StrictConstraints,
	}
}

// Router converts the settings into a router configuration.
func (c *RoutingConfig) Router() routing.RouterConfig {
	return routing.RouterConfig{
		MaxRetries:     c.MaxRetries,
		ParallelCount:  c.ParallelCount,
		AttemptTimeout: c.AttemptTimeout,
	}
}

// HistoryConfig selects the execution history backend.
type HistoryConfig struct {
	Driver     string `env:"HISTORY_DRIVER"      envDefault:"memory" validate:"oneof=memory sqlite postgres"`
	DSN        string `env:"HISTORY_DSN"         envDefault:"switchboard.db" validate:"required_unless=Driver memory"`
	WindowDays int    `env:"HISTORY_WINDOW_DAYS" envDefault:"30"     validate:"gt=0"`
}

// RedisConfig contains the shared live metrics store settings.
type RedisConfig struct {
	Enabled   bool   `env:"REDIS_ENABLED"    envDefault:"false"`
	Addr      string `env:"REDIS_ADDR"       envDefault:"localhost:6379" validate:"required_if=Enabled true"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB"         envDefault:"0"      validate:"gte=0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"switchboard:metrics:"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out

	Log     *observability.LogConfig
	Server  *ServerConfig
	CORS    *CORSConfig
	OpenAI  *openai.Config
	Echo    *echo.Config
	Routing *RoutingConfig
	History *HistoryConfig
	Redis   *RedisConfig
}

// Load loads environment files, parses and validates configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Log:     &cfg.Log,
		Server:  &cfg.Server,
		CORS:    &cfg.CORS,
		OpenAI:  &cfg.OpenAI,
		Echo:    &cfg.Echo,
		Routing: &cfg.Routing,
		History: &cfg.History,
		Redis:   &cfg.Redis,
	}
}
