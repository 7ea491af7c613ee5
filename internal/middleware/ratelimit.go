package middleware

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/interceptor"
	"github.com/lexfrei/go-asynchttp/internal/ratelimit"
	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/observability"
)

// ErrRateLimit is returned when a request can never be admitted by its limiter.
var ErrRateLimit = errors.New("rate limit reservation failed")

// RateLimitConfig configures the rate limit interceptor.
type RateLimitConfig struct {
	Limiter  *rate.Limiter      // Single limiter (used if Selector is nil)
	Selector ratelimit.Selector // Optional: select limiter based on request
	Logger   observability.Logger
	Metrics  observability.MetricsRecorder
}

// RateLimit returns an interceptor that delays requests to respect a
// client-side rate.
//
// Two modes of operation:
// 1. Single limiter: Set cfg.Limiter for uniform rate limiting
// 2. Selector mode: Set cfg.Selector to choose limiter per request (e.g. per host)
//
// Waiting does not block a goroutine of the caller. Canceling the call while
// it waits gives the reserved token back.
func RateLimit(cfg RateLimitConfig) interceptor.Interceptor {
	selector := cfg.Selector
	if selector == nil {
		selector = ratelimit.Shared(cfg.Limiter)
	}

	return &rateLimiter{
		selector: selector,
		logger:   observability.OrNoop(cfg.Logger),
		metrics:  observability.MetricsOrNoop(cfg.Metrics),
	}
}

type rateLimiter struct {
	selector ratelimit.Selector
	logger   observability.Logger
	metrics  observability.MetricsRecorder
}

func (r *rateLimiter) Intercept(req *message.Request, next interceptor.Next) *async.Single[*message.Response] {
	limiter, endpoint := r.selector(req)
	if limiter == nil {
		return next.Proceed(req)
	}

	reservation := limiter.Reserve()
	if !reservation.OK() {
		return async.Fail[*message.Response](errors.Wrapf(ErrRateLimit, "endpoint %s", endpoint))
	}

	delay := reservation.Delay()
	if delay <= 0 {
		return next.Proceed(req)
	}

	path := req.URL().Path
	r.logger.Debug("rate limit delay",
		observability.Field{Key: "endpoint", Value: endpoint},
		observability.Field{Key: "delay", Value: delay},
		observability.Field{Key: "path", Value: path},
	)
	r.metrics.RecordRateLimit(normalizePath(path), delay)

	return async.Create(func(sink *async.Sink[*message.Response]) {
		after(req.Context(), sink, delay, "rate limit wait",
			func() { sink.Forward(next.Proceed(req)) },
			reservation.Cancel,
		)
	})
}
