package config

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-asynchttp/observability"
	"github.com/lexfrei/go-asynchttp/transport"
)

// Defaults for the client section.
const (
	DefaultRetryWait    = time.Second
	DefaultRetryMaxWait = 30 * time.Second
	DefaultNamespace    = "asynchttp"
)

// ErrInvalidConfig marks errors from Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete client configuration.
type Config struct {
	Transport transport.Config           `mapstructure:"transport"`
	Log       observability.LoggerConfig `mapstructure:"log"`
	Client    ClientConfig               `mapstructure:"client"`
}

// ClientConfig selects the built-in interceptors of the client.
type ClientConfig struct {
	UserAgent string            `mapstructure:"user_agent"`
	Headers   map[string]string `mapstructure:"headers"`
	RequestID bool              `mapstructure:"request_id"`

	// RateLimit is in requests per minute; zero disables limiting.
	RateLimit        int  `mapstructure:"rate_limit"`
	RateLimitPerHost bool `mapstructure:"rate_limit_per_host"`

	// MaxRetries of zero disables retrying.
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryWait    time.Duration `mapstructure:"retry_wait"`
	RetryMaxWait time.Duration `mapstructure:"retry_max_wait"`

	LogBodies bool `mapstructure:"log_bodies"`
	// MetricsNamespace prefixes Prometheus metric names.
	MetricsNamespace string `mapstructure:"metrics_namespace"`
}

// Default returns a Config with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero values of every section.
func (c *Config) ApplyDefaults() {
	c.Transport.ApplyDefaults()
	c.Log.ApplyDefaults()

	if c.Client.RetryWait == 0 {
		c.Client.RetryWait = DefaultRetryWait
	}
	if c.Client.RetryMaxWait == 0 {
		c.Client.RetryMaxWait = DefaultRetryMaxWait
	}
	if c.Client.MetricsNamespace == "" {
		c.Client.MetricsNamespace = DefaultNamespace
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return errors.Mark(errors.Wrap(err, "transport"), ErrInvalidConfig)
	}
	if err := c.Log.Validate(); err != nil {
		return errors.Mark(errors.Wrap(err, "log"), ErrInvalidConfig)
	}

	switch {
	case c.Client.RateLimit < 0:
		return errors.Mark(errors.Newf("client: rate limit must not be negative, got %d", c.Client.RateLimit), ErrInvalidConfig)
	case c.Client.MaxRetries < 0:
		return errors.Mark(errors.Newf("client: max retries must not be negative, got %d", c.Client.MaxRetries), ErrInvalidConfig)
	case c.Client.RetryWait < 0, c.Client.RetryMaxWait < 0:
		return errors.Mark(errors.New("client: retry waits must not be negative"), ErrInvalidConfig)
	}

	return nil
}
