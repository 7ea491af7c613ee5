// Package ratelimit builds token-bucket limiters for the rate limit interceptor.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/lexfrei/go-asynchttp/message"
)

// NewRateLimiter creates a new rate limiter with specified requests per minute.
// It uses a token bucket algorithm where tokens are replenished continuously
// at the rate of requestsPerMinute/60 per second, with a burst capacity equal
// to requestsPerMinute. A non-positive rate yields nil, meaning unlimited.
func NewRateLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute)
}

// Selector chooses the limiter for a request and names it for logs and
// metrics. A nil limiter means the request is not limited.
type Selector func(req *message.Request) (*rate.Limiter, string)

// Shared applies one limiter to every request.
func Shared(limiter *rate.Limiter) Selector {
	return func(*message.Request) (*rate.Limiter, string) {
		return limiter, "default"
	}
}

// PerHost gives every target host its own limiter of requestsPerMinute.
func PerHost(requestsPerMinute int) Selector {
	var limiters sync.Map

	return func(req *message.Request) (*rate.Limiter, string) {
		host := req.URL().Host
		if l, ok := limiters.Load(host); ok {
			//nolint:forcetypeassert // map only stores limiters
			return l.(*rate.Limiter), host
		}

		l, _ := limiters.LoadOrStore(host, NewRateLimiter(requestsPerMinute))
		//nolint:forcetypeassert // map only stores limiters
		return l.(*rate.Limiter), host
	}
}
