package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the default prefix of environment overrides.
const EnvPrefix = "ASYNCHTTP"

type loaderConfig struct {
	configFile string
	envFile    string
	envPrefix  string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*loaderConfig)

// WithConfigFile sets an explicit config file path. A missing file is an error.
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile loads a dotenv file before reading the environment. Variables
// already set in the process environment win.
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// WithEnvPrefix replaces the ASYNCHTTP prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *loaderConfig) { lc.envPrefix = prefix }
}

// Load reads the configuration, applies defaults and validates the result.
func Load(opts ...LoaderOption) (Config, error) {
	lc := loaderConfig{envPrefix: EnvPrefix}
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.envFile != "" {
		if err := godotenv.Load(lc.envFile); err != nil {
			return Config{}, errors.Wrapf(err, "load env file %s", lc.envFile)
		}
	}

	v := viper.New()
	setDefaults(v)

	if lc.configFile != "" {
		if _, err := os.Stat(lc.configFile); err != nil {
			return Config{}, errors.Wrapf(err, "config file %s", lc.configFile)
		}
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", lc.configFile)
		}
	}

	v.SetEnvPrefix(lc.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override keys
// that appear in no config file.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("transport.read_timeout", d.Transport.ReadTimeout)
	v.SetDefault("transport.connect_timeout", d.Transport.ConnectTimeout)
	v.SetDefault("transport.call_timeout", d.Transport.CallTimeout)
	v.SetDefault("transport.max_idle_conns", d.Transport.MaxIdleConns)
	v.SetDefault("transport.max_idle_conns_per_host", d.Transport.MaxIdleConnsPerHost)
	v.SetDefault("transport.idle_conn_timeout", d.Transport.IdleConnTimeout)
	v.SetDefault("transport.max_requests", d.Transport.MaxRequests)
	v.SetDefault("transport.proxy_url", d.Transport.ProxyURL)
	v.SetDefault("transport.proxy_username", d.Transport.ProxyUsername)
	v.SetDefault("transport.proxy_password", d.Transport.ProxyPassword)
	v.SetDefault("transport.insecure_skip_verify", d.Transport.InsecureSkipVerify)
	v.SetDefault("transport.compression", d.Transport.Compression)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.timestamp", d.Log.Timestamp)
	v.SetDefault("log.no_color", d.Log.NoColor)
	v.SetDefault("log.service", d.Log.Service)

	v.SetDefault("client.user_agent", d.Client.UserAgent)
	v.SetDefault("client.request_id", d.Client.RequestID)
	v.SetDefault("client.rate_limit", d.Client.RateLimit)
	v.SetDefault("client.rate_limit_per_host", d.Client.RateLimitPerHost)
	v.SetDefault("client.max_retries", d.Client.MaxRetries)
	v.SetDefault("client.retry_wait", d.Client.RetryWait)
	v.SetDefault("client.retry_max_wait", d.Client.RetryMaxWait)
	v.SetDefault("client.log_bodies", d.Client.LogBodies)
	v.SetDefault("client.metrics_namespace", d.Client.MetricsNamespace)
}
