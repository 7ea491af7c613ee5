package transport

import (
	"crypto/tls"
	"net/http"

	"github.com/lexfrei/go-asynchttp/observability"
)

// Option is a functional option for configuring HTTPEngine.
type Option func(*HTTPEngine)

// WithTLSConfig sets the TLS configuration of the default transport.
// It takes precedence over Config.InsecureSkipVerify.
func WithTLSConfig(config *tls.Config) Option {
	return func(e *HTTPEngine) {
		e.tlsConfig = config
	}
}

// WithBaseTransport replaces the RoundTripper built from Config. Timeouts,
// pool and proxy settings of Config are then the caller's responsibility;
// CallTimeout and MaxRequests still apply.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(e *HTTPEngine) {
		if rt != nil {
			e.base = rt
		}
	}
}

// WithMiddleware adds network-level middleware.
// Middleware is applied in reverse order to create the chain:
// first middleware in the slice becomes the outermost layer.
//
// Example:
//
//	WithMiddleware(A, B, C) creates chain: A(B(C(transport)))
//	Request flow: A -> B -> C -> transport -> server
//	Response flow: server -> transport -> C -> B -> A
func WithMiddleware(middleware ...Middleware) Option {
	return func(e *HTTPEngine) {
		e.middleware = append(e.middleware, middleware...)
	}
}

// WithLogger sets the logger for call lifecycle events.
func WithLogger(logger observability.Logger) Option {
	return func(e *HTTPEngine) {
		e.logger = observability.OrNoop(logger)
	}
}
