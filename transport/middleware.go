package transport

import (
	"crypto/tls"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// Middleware wraps an http.RoundTripper to add behavior at the network level,
// below the interceptor chain. It sees every wire attempt, including redirects.
// Middleware is applied in order: first middleware is outermost.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// chain wraps base so that middleware[0] is the outermost layer.
func chain(base http.RoundTripper, middleware []Middleware) http.RoundTripper {
	rt := base
	for i := len(middleware) - 1; i >= 0; i-- {
		rt = middleware[i](rt)
	}
	return rt
}

// TLSConfig returns a middleware that sets the TLS configuration of the
// wrapped transport. A non-*http.Transport is replaced by a clone of the
// default transport carrying the config.
func TLSConfig(config *tls.Config) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		transport, ok := next.(*http.Transport)
		if !ok {
			defaultTransport, ok := http.DefaultTransport.(*http.Transport)
			if !ok {
				return next
			}
			transport = defaultTransport.Clone()
			transport.ForceAttemptHTTP2 = true
		} else {
			transport = transport.Clone()
		}

		transport.TLSClientConfig = config

		return transport
	}
}

// InsecureSkipVerify returns a TLS config that skips certificate verification.
// WARNING: only for development against servers with self-signed certificates.
func InsecureSkipVerify() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // This is an opt-in feature for dev/test environments
	}
}

// Compression returns a middleware that requests gzip/zstd encoded responses
// and transparently decompresses them.
func Compression() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return gzhttp.Transport(next)
	}
}

// HeaderInjector returns a middleware that sets a header on every wire
// attempt unless the request already carries it.
func HeaderInjector(name, value string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(name) != "" {
				return next.RoundTrip(req)
			}
			// RoundTrippers must not modify the caller's request.
			clone := req.Clone(req.Context())
			clone.Header.Set(name, value)
			return next.RoundTrip(clone)
		})
	}
}
