// Package observability provides interfaces for logging and metrics collection
// in the asynchttp client.
//
// The Logger and MetricsRecorder interfaces let callers plug in their own
// implementations. Ready-made adapters are provided for zerolog and Prometheus.
//
// # Logger Interface
//
// The Logger interface supports structured logging with key-value pairs:
//
//	logger, err := observability.NewLogger(observability.LoggerConfig{Level: "debug"}, os.Stderr)
//	client := asynchttp.New(asynchttp.WithLogger(logger))
//
// Supported log levels:
//   - Debug: Detailed diagnostic information
//   - Info: General informational messages
//   - Warn: Warning messages for potentially problematic situations
//   - Error: Error messages for failures
//
// # MetricsRecorder Interface
//
// The MetricsRecorder interface tracks client metrics:
//
//	metrics := observability.NewPrometheusRecorder(prometheus.DefaultRegisterer, "myapp")
//	client := asynchttp.New(asynchttp.WithMetrics(metrics))
//
// Tracked metrics include:
//   - HTTP request count, status codes, and duration
//   - Retry attempts for failed requests
//   - Rate limiting events and wait times
//   - Canceled calls
//   - Error occurrences by type
//
// # Default Behavior
//
// If no logger or metrics recorder is provided, the client uses no-op
// implementations that discard all events.
//
// # Example
//
// See examples/interceptors/main.go for a custom slog-based logger and an
// in-memory metrics recorder.
package observability
