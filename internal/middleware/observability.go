package middleware

import (
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/interceptor"
	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/observability"
	"github.com/lexfrei/go-asynchttp/transport"
)

// ObservabilityConfig configures the observability interceptor.
type ObservabilityConfig struct {
	Logger  observability.Logger
	Metrics observability.MetricsRecorder
	// LogBodies buffers every response and logs up to MaxBodyLog bytes of it.
	// The buffered response is passed on, so callers can still read it.
	LogBodies  bool
	MaxBodyLog int
}

const defaultMaxBodyLog = 2048

// Observability returns an interceptor that logs and records metrics for each call.
// Duration is measured from demand to the response headers.
func Observability(cfg ObservabilityConfig) interceptor.Interceptor {
	if cfg.MaxBodyLog <= 0 {
		cfg.MaxBodyLog = defaultMaxBodyLog
	}

	return &observer{
		logger:     observability.OrNoop(cfg.Logger),
		metrics:    observability.MetricsOrNoop(cfg.Metrics),
		logBodies:  cfg.LogBodies,
		maxBodyLog: cfg.MaxBodyLog,
	}
}

type observer struct {
	logger     observability.Logger
	metrics    observability.MetricsRecorder
	logBodies  bool
	maxBodyLog int
}

func (o *observer) Intercept(req *message.Request, next interceptor.Next) *async.Single[*message.Response] {
	start := time.Now()

	// Compute URL string once to avoid multiple allocations
	urlStr := req.URL().Redacted()
	method := string(req.Method())
	path := normalizePath(req.URL().Path)

	o.logger.Debug("http request started",
		observability.Field{Key: "method", Value: method},
		observability.Field{Key: "url", Value: urlStr},
		observability.Field{Key: "path", Value: req.URL().Path},
	)

	downstream := next.Proceed(req)

	return async.Create(func(sink *async.Sink[*message.Response]) {
		sub := downstream.Subscribe(async.Observer[*message.Response]{
			Success: func(resp *message.Response) {
				duration := time.Since(start)
				resp = o.completed(resp, method, urlStr, path, duration)
				if !sink.Success(resp) {
					_ = resp.Close()
				}
			},
			Failure: func(err error) {
				o.logger.Error("http request failed",
					observability.Field{Key: "method", Value: method},
					observability.Field{Key: "url", Value: urlStr},
					observability.Field{Key: "duration", Value: time.Since(start)},
					observability.Field{Key: "error", Value: err.Error()},
				)
				o.metrics.RecordError("http_request", transport.ErrorType(err))
				sink.Error(err)
			},
		})

		sink.OnCancel(func() {
			sub.Cancel()
			o.logger.Debug("http request canceled",
				observability.Field{Key: "method", Value: method},
				observability.Field{Key: "url", Value: urlStr},
				observability.Field{Key: "duration", Value: time.Since(start)},
			)
			o.metrics.RecordCancel(path)
		})

		sub.Request(1)
	})
}

func (o *observer) completed(
	resp *message.Response,
	method, urlStr, path string,
	duration time.Duration,
) *message.Response {
	fields := []observability.Field{
		{Key: "method", Value: method},
		{Key: "url", Value: urlStr},
		{Key: "status", Value: resp.StatusCode()},
		{Key: "duration", Value: duration},
	}

	if o.logBodies {
		buffered, err := resp.Buffer()
		if err != nil {
			fields = append(fields, observability.Field{Key: "body_error", Value: err.Error()})
		} else {
			resp = buffered
			data, _ := buffered.Bytes()
			if len(data) > o.maxBodyLog {
				data = data[:o.maxBodyLog]
			}
			fields = append(fields, observability.Field{Key: "body", Value: string(data)})
		}
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		o.logger.Warn("http request completed with error", fields...)
	} else {
		o.logger.Debug("http request completed", fields...)
	}

	// Record metrics with normalized path to avoid unbounded cardinality
	o.metrics.RecordHTTPRequest(method, path, resp.StatusCode(), duration)

	return resp
}

var (
	// combinedIDPattern matches UUIDs, ObjectIDs, or numeric IDs in a single pattern.
	// Order matters: UUID first (most specific), then ObjectID, then numeric.
	combinedIDPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}|[0-9a-f]{24}|/\d{5,}(?:/|$)`)

	// normalizedPathCache caches normalized paths to avoid repeated regex operations.
	normalizedPathCache sync.Map
)

// normalizePath replaces dynamic path segments (UUIDs, ObjectIDs, numeric IDs) with placeholders
// to prevent unbounded cardinality in metrics.
//
// Examples:
//   - /api/records/507f1f77bcf86cd799439011 → /api/records/:id
//   - /api/devices/12345678/ports → /api/devices/:id/ports
func normalizePath(path string) string {
	if cached, ok := normalizedPathCache.Load(path); ok {
		//nolint:forcetypeassert // Cache only stores strings, type assertion is safe
		return cached.(string)
	}

	normalized := combinedIDPattern.ReplaceAllStringFunc(path, func(match string) string {
		// Numeric IDs start with / and end with / or EOL
		if match[0] == '/' {
			if match[len(match)-1] == '/' {
				return "/:id/"
			}
			return "/:id"
		}
		return ":id"
	})

	normalizedPathCache.Store(path, normalized)

	return normalized
}
