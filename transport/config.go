package transport

import (
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultReadTimeout     = 120 * time.Second
	DefaultConnectTimeout  = 60 * time.Second
	DefaultMaxIdleConns    = 100
	DefaultMaxIdlePerHost  = 5
	DefaultIdleConnTimeout = 5 * time.Minute
	DefaultMaxRequests     = 64
)

// ErrInvalidConfig marks configuration errors.
var ErrInvalidConfig = errors.New("invalid transport config")

// Config holds the settings of HTTPEngine. Zero values are replaced by the
// defaults above; a zero CallTimeout means no overall limit.
type Config struct {
	// ReadTimeout bounds the wait for response headers after the request is written.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// ConnectTimeout bounds establishing a TCP connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// CallTimeout bounds the whole exchange including reading the body.
	CallTimeout time.Duration `mapstructure:"call_timeout"`

	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`

	// MaxRequests is the number of calls allowed on the wire at once. Further
	// calls queue until a slot frees up.
	MaxRequests int `mapstructure:"max_requests"`

	ProxyURL      string `mapstructure:"proxy_url"`
	ProxyUsername string `mapstructure:"proxy_username"`
	ProxyPassword string `mapstructure:"proxy_password"`

	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
	Compression        bool `mapstructure:"compression"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = DefaultMaxIdlePerHost
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = DefaultIdleConnTimeout
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = DefaultMaxRequests
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.ReadTimeout < 0, c.ConnectTimeout < 0, c.CallTimeout < 0, c.IdleConnTimeout < 0:
		return errors.Mark(errors.New("timeouts must not be negative"), ErrInvalidConfig)
	case c.MaxRequests < 1:
		return errors.Mark(errors.Newf("max requests must be positive, got %d", c.MaxRequests), ErrInvalidConfig)
	case c.MaxIdleConns < 0, c.MaxIdleConnsPerHost < 0:
		return errors.Mark(errors.New("idle connection limits must not be negative"), ErrInvalidConfig)
	case c.ProxyURL == "" && (c.ProxyUsername != "" || c.ProxyPassword != ""):
		return errors.Mark(errors.New("proxy credentials require a proxy url"), ErrInvalidConfig)
	}

	if _, err := c.proxy(); err != nil {
		return err
	}
	return nil
}

// proxy returns the proxy URL with credentials attached, or nil.
func (c *Config) proxy() (*url.URL, error) {
	if c.ProxyURL == "" {
		return nil, nil //nolint:nilnil // no proxy configured
	}
	u, err := url.Parse(c.ProxyURL)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse proxy url %q", c.ProxyURL), ErrInvalidConfig)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Mark(errors.Newf("proxy url %q must be absolute", c.ProxyURL), ErrInvalidConfig)
	}
	if c.ProxyUsername != "" {
		u.User = url.UserPassword(c.ProxyUsername, c.ProxyPassword)
	}
	return u, nil
}
