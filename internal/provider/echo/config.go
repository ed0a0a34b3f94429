package echo

import "time"

// Config contains echo provider configuration.
//   - ID: provider id used for registration and metrics
//   - Cost: flat USD cost added to every successful call
//   - FailureRate: probability in [0,1] that a call fails, for failover drills
//   - Delay: simulated latency per call
type Config struct {
	Enabled     bool          `env:"ECHO_ENABLED"      envDefault:"true"`
	ID          string        `env:"ECHO_PROVIDER_ID"  envDefault:"echo"`
	Cost        float64       `env:"ECHO_COST"         envDefault:"0"  validate:"gte=0"`
	FailureRate float64       `env:"ECHO_FAILURE_RATE" envDefault:"0"  validate:"gte=0,lte=1"`
	Delay       time.Duration `env:"ECHO_DELAY"        envDefault:"0s" validate:"gte=0"`
}
