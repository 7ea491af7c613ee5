package asynchttp

import (
	"crypto/tls"
	"sort"
	"time"

	"github.com/lexfrei/go-asynchttp/config"
	"github.com/lexfrei/go-asynchttp/interceptor"
	"github.com/lexfrei/go-asynchttp/internal/middleware"
	"github.com/lexfrei/go-asynchttp/internal/ratelimit"
	"github.com/lexfrei/go-asynchttp/observability"
	"github.com/lexfrei/go-asynchttp/transport"
)

// Option is a functional option for configuring the client.
type Option func(*options)

type header struct {
	name, value string
}

type options struct {
	engine    transport.Engine
	transport transport.Config
	tlsConfig *tls.Config
	network   []transport.Middleware

	interceptors []interceptor.Interceptor

	logger     observability.Logger
	metrics    observability.MetricsRecorder
	logBodies  bool
	maxBodyLog int

	requestIDHeader string
	userAgent       string
	headers         []header

	rateLimit        int
	rateLimitPerHost bool

	retry *middleware.RetryConfig
}

func defaultOptions() *options {
	return &options{transport: transport.DefaultConfig()}
}

// pipeline returns the interceptors in chain order.
func (o *options) pipeline() []interceptor.Interceptor {
	var chain []interceptor.Interceptor

	if o.logger != nil || o.metrics != nil {
		chain = append(chain, middleware.Observability(middleware.ObservabilityConfig{
			Logger:     o.logger,
			Metrics:    o.metrics,
			LogBodies:  o.logBodies,
			MaxBodyLog: o.maxBodyLog,
		}))
	}

	if o.requestIDHeader != "" {
		chain = append(chain, middleware.RequestID(o.requestIDHeader))
	}

	if o.userAgent != "" {
		chain = append(chain, middleware.UserAgent(o.userAgent))
	}
	for _, h := range o.headers {
		chain = append(chain, middleware.Header(h.name, h.value))
	}

	chain = append(chain, o.interceptors...)

	if o.rateLimit > 0 {
		cfg := middleware.RateLimitConfig{Logger: o.logger, Metrics: o.metrics}
		if o.rateLimitPerHost {
			cfg.Selector = ratelimit.PerHost(o.rateLimit)
		} else {
			cfg.Limiter = ratelimit.NewRateLimiter(o.rateLimit)
		}
		chain = append(chain, middleware.RateLimit(cfg))
	}

	if o.retry != nil && o.retry.MaxRetries > 0 {
		cfg := *o.retry
		cfg.Logger = o.logger
		cfg.Metrics = o.metrics
		chain = append(chain, middleware.Retry(cfg))
	}

	return chain
}

// WithInterceptors appends interceptors. They run in the order given, after
// the built-in observability, request ID and header interceptors and before
// rate limiting and retries.
func WithInterceptors(interceptors ...interceptor.Interceptor) Option {
	return func(o *options) {
		o.interceptors = append(o.interceptors, interceptors...)
	}
}

// WithEngine replaces the default net/http transport. Transport, TLS and
// network middleware options are then ignored.
func WithEngine(engine transport.Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// WithTransportConfig replaces the whole transport configuration. Zero fields
// take their defaults.
func WithTransportConfig(cfg transport.Config) Option {
	return func(o *options) {
		cfg.ApplyDefaults()
		o.transport = cfg
	}
}

// WithReadTimeout bounds the wait for response headers (default 120s).
func WithReadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.transport.ReadTimeout = timeout
	}
}

// WithConnectTimeout bounds establishing a connection (default 60s).
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.transport.ConnectTimeout = timeout
	}
}

// WithCallTimeout bounds a whole call, reading the body included.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.transport.CallTimeout = timeout
	}
}

// WithProxy sends every call through the proxy at proxyURL.
func WithProxy(proxyURL string) Option {
	return func(o *options) {
		o.transport.ProxyURL = proxyURL
	}
}

// WithProxyAuth sets basic credentials for the proxy.
func WithProxyAuth(username, password string) Option {
	return func(o *options) {
		o.transport.ProxyUsername = username
		o.transport.ProxyPassword = password
	}
}

// WithMaxRequests limits how many calls are on the wire at once.
func WithMaxRequests(n int) Option {
	return func(o *options) {
		o.transport.MaxRequests = n
	}
}

// WithConnectionPool sets the idle connection limit and keep-alive duration.
func WithConnectionPool(maxIdle int, idleTimeout time.Duration) Option {
	return func(o *options) {
		o.transport.MaxIdleConns = maxIdle
		o.transport.IdleConnTimeout = idleTimeout
	}
}

// WithTLSConfig sets the TLS configuration of the default transport.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = cfg
	}
}

// WithNetworkMiddleware adds RoundTripper middleware below the interceptor
// chain. The first middleware is the outermost.
func WithNetworkMiddleware(mw ...transport.Middleware) Option {
	return func(o *options) {
		o.network = append(o.network, mw...)
	}
}

// WithCompression requests gzip encoded responses and decodes them
// transparently.
func WithCompression() Option {
	return func(o *options) {
		o.transport.Compression = true
	}
}

// WithLogger enables the observability interceptor with logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics enables the observability interceptor with metrics.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithBodyLogging makes the observability interceptor buffer responses and
// log up to maxBytes of each body. Use it for debugging only.
func WithBodyLogging(maxBytes int) Option {
	return func(o *options) {
		o.logBodies = true
		o.maxBodyLog = maxBytes
	}
}

// WithHeader sets a header on every request.
func WithHeader(name, value string) Option {
	return func(o *options) {
		o.headers = append(o.headers, header{name: name, value: value})
	}
}

// WithBearerToken sets a bearer Authorization header on every request.
func WithBearerToken(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithUserAgent sets the User-Agent of requests that do not carry one.
func WithUserAgent(agent string) Option {
	return func(o *options) {
		o.userAgent = agent
	}
}

// WithRequestID tags every request with a random ID in headerName, or in
// X-Request-ID when headerName is empty.
func WithRequestID(headerName string) Option {
	return func(o *options) {
		if headerName == "" {
			headerName = middleware.DefaultRequestIDHeader
		}
		o.requestIDHeader = headerName
	}
}

// WithRateLimit limits the client to requestsPerMinute with an equal burst.
func WithRateLimit(requestsPerMinute int) Option {
	return func(o *options) {
		o.rateLimit = requestsPerMinute
		o.rateLimitPerHost = false
	}
}

// WithRateLimitPerHost is like WithRateLimit with one budget per target host.
func WithRateLimitPerHost(requestsPerMinute int) Option {
	return func(o *options) {
		o.rateLimit = requestsPerMinute
		o.rateLimitPerHost = true
	}
}

// WithRetry retries transport failures, 5xx and 429 responses up to
// maxRetries times with exponential backoff starting at initialWait.
func WithRetry(maxRetries int, initialWait time.Duration) Option {
	return func(o *options) {
		if o.retry == nil {
			o.retry = &middleware.RetryConfig{}
		}
		o.retry.MaxRetries = maxRetries
		o.retry.InitialWait = initialWait
	}
}

// WithRetryMaxWait caps a single backoff step.
func WithRetryMaxWait(maxWait time.Duration) Option {
	return func(o *options) {
		if o.retry == nil {
			o.retry = &middleware.RetryConfig{}
		}
		o.retry.MaxWait = maxWait
	}
}

// FromConfig applies a loaded configuration. Options given after it win.
func FromConfig(cfg config.Config) Option {
	return func(o *options) {
		cfg.ApplyDefaults()
		o.transport = cfg.Transport

		o.userAgent = cfg.Client.UserAgent
		if cfg.Client.RequestID {
			o.requestIDHeader = middleware.DefaultRequestIDHeader
		}

		names := make([]string, 0, len(cfg.Client.Headers))
		for name := range cfg.Client.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			o.headers = append(o.headers, header{name: name, value: cfg.Client.Headers[name]})
		}

		o.rateLimit = cfg.Client.RateLimit
		o.rateLimitPerHost = cfg.Client.RateLimitPerHost

		if cfg.Client.MaxRetries > 0 {
			o.retry = &middleware.RetryConfig{
				MaxRetries:  cfg.Client.MaxRetries,
				InitialWait: cfg.Client.RetryWait,
				MaxWait:     cfg.Client.RetryMaxWait,
			}
		}

		o.logBodies = cfg.Client.LogBodies
	}
}
