package middleware

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/interceptor"
	"github.com/lexfrei/go-asynchttp/internal/retry"
	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/observability"
)

// RetryConfig configures the retry interceptor.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	// MaxWait caps a single backoff step; zero means no cap.
	MaxWait time.Duration
	Logger  observability.Logger
	Metrics observability.MetricsRecorder
}

// Retry returns an interceptor that retries failed calls with exponential backoff.
// It retries on:
// - Transport failures (connection failures, timeouts).
// - 5xx server errors.
// - 429 rate limit errors (respects Retry-After header).
//
// It does NOT retry on:
// - 4xx client errors (except 429).
// - Successful responses (2xx, 3xx).
// - Cancellation or requests that cannot be built.
//
// A retry resubscribes the rest of the chain, so interceptors registered
// after this one run again and a new transport call is made. Request bodies
// are reopened for each attempt; a StreamBody must therefore be reopenable.
// When retries are exhausted on a retryable status, the last response is
// returned.
func Retry(cfg RetryConfig) interceptor.Interceptor {
	return &retrier{
		maxRetries:  max(cfg.MaxRetries, 0),
		initialWait: cfg.InitialWait,
		maxWait:     cfg.MaxWait,
		logger:      observability.OrNoop(cfg.Logger),
		metrics:     observability.MetricsOrNoop(cfg.Metrics),
	}
}

type retrier struct {
	maxRetries  int
	initialWait time.Duration
	maxWait     time.Duration
	logger      observability.Logger
	metrics     observability.MetricsRecorder
}

func (r *retrier) Intercept(req *message.Request, next interceptor.Next) *async.Single[*message.Response] {
	return r.attempt(req, next.Proceed(req), 0)
}

// attempt subscribes downstream once and decides what to do with the outcome.
func (r *retrier) attempt(
	req *message.Request,
	downstream *async.Single[*message.Response],
	attempt int,
) *async.Single[*message.Response] {
	return async.Create(func(sink *async.Sink[*message.Response]) {
		sub := downstream.Subscribe(async.Observer[*message.Response]{
			Success: func(resp *message.Response) {
				if !retry.ShouldRetry(resp.StatusCode()) || attempt == r.maxRetries {
					if !sink.Success(resp) {
						_ = resp.Close()
					}
					return
				}

				wait := r.calculateWait(attempt, resp)
				_ = resp.Close()
				r.schedule(sink, req, downstream, attempt, wait)
			},
			Failure: func(err error) {
				if !retry.ShouldRetryError(err) {
					sink.Error(err)
					return
				}
				if attempt == r.maxRetries {
					sink.Error(errors.Wrapf(err, "request failed after %d retries", r.maxRetries))
					return
				}
				r.schedule(sink, req, downstream, attempt, r.calculateWait(attempt, nil))
			},
		})
		sink.OnCancel(sub.Cancel)
		sub.Request(1)
	})
}

func (r *retrier) schedule(
	sink *async.Sink[*message.Response],
	req *message.Request,
	downstream *async.Single[*message.Response],
	attempt int,
	wait time.Duration,
) {
	r.logger.Warn("retrying request",
		observability.Field{Key: "attempt", Value: attempt + 1},
		observability.Field{Key: "max_retries", Value: r.maxRetries},
		observability.Field{Key: "url", Value: req.URL().Redacted()},
		observability.Field{Key: "method", Value: string(req.Method())},
	)

	r.metrics.RecordRetry(attempt+1, normalizePath(req.URL().Path))

	after(req.Context(), sink, wait, "retry wait", func() {
		sink.Forward(r.attempt(req, downstream, attempt+1))
	}, nil)
}

// calculateWait determines how long to wait before next retry.
// Uses exponential backoff: initialWait * 2^attempt
// Respects Retry-After header for 429 and 503 responses.
func (r *retrier) calculateWait(attempt int, resp *message.Response) time.Duration {
	if resp != nil && (resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() == http.StatusServiceUnavailable) {
		if retryAfter, ok := resp.Header("Retry-After"); ok {
			if wait := retry.ParseRetryAfter(retryAfter); wait > 0 {
				r.logger.Debug("using Retry-After header",
					observability.Field{Key: "retry_after", Value: retryAfter},
					observability.Field{Key: "wait", Value: wait},
				)
				return wait
			}
		}
	}

	wait := retry.Backoff(r.initialWait, attempt, r.maxWait)

	r.logger.Debug("calculated exponential backoff",
		observability.Field{Key: "attempt", Value: attempt},
		observability.Field{Key: "wait", Value: wait},
	)

	return wait
}
