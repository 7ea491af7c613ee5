package testutil

import (
	"sync"
	"time"

	"github.com/lexfrei/go-asynchttp/observability"
)

// LogEntry is one message captured by RecordingLogger.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// RecordingLogger keeps every log call in memory.
type RecordingLogger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	fields  []observability.Field
}

// NewRecordingLogger creates an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{mu: &sync.Mutex{}, entries: &[]LogEntry{}}
}

func (l *RecordingLogger) Debug(msg string, fields ...observability.Field) {
	l.record("debug", msg, fields)
}

func (l *RecordingLogger) Info(msg string, fields ...observability.Field) {
	l.record("info", msg, fields)
}

func (l *RecordingLogger) Warn(msg string, fields ...observability.Field) {
	l.record("warn", msg, fields)
}

func (l *RecordingLogger) Error(msg string, fields ...observability.Field) {
	l.record("error", msg, fields)
}

//nolint:ireturn // Method must return interface to satisfy Logger interface
func (l *RecordingLogger) With(fields ...observability.Field) observability.Logger {
	return &RecordingLogger{
		mu:      l.mu,
		entries: l.entries,
		fields:  append(append([]observability.Field(nil), l.fields...), fields...),
	}
}

func (l *RecordingLogger) record(level, msg string, fields []observability.Field) {
	entry := LogEntry{Level: level, Message: msg, Fields: make(map[string]any, len(l.fields)+len(fields))}
	for _, f := range l.fields {
		entry.Fields[f.Key] = f.Value
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, entry)
}

// Entries returns a copy of the captured entries.
func (l *RecordingLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), *l.entries...)
}

// Find returns the first entry with msg.
func (l *RecordingLogger) Find(msg string) (LogEntry, bool) {
	for _, e := range l.Entries() {
		if e.Message == msg {
			return e, true
		}
	}
	return LogEntry{}, false
}

// RequestRecord is one RecordHTTPRequest call.
type RequestRecord struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
}

// RecordingMetrics keeps every metrics call in memory.
type RecordingMetrics struct {
	mu         sync.Mutex
	Requests   []RequestRecord
	Retries    []int
	RateLimits []time.Duration
	Cancels    []string
	Errors     []string
}

var (
	_ observability.Logger          = (*RecordingLogger)(nil)
	_ observability.MetricsRecorder = (*RecordingMetrics)(nil)
)

func (m *RecordingMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, RequestRecord{Method: method, Path: path, Status: statusCode, Duration: duration})
}

func (m *RecordingMetrics) RecordRetry(attempt int, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Retries = append(m.Retries, attempt)
}

func (m *RecordingMetrics) RecordRateLimit(_ string, wait time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateLimits = append(m.RateLimits, wait)
}

func (m *RecordingMetrics) RecordCancel(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancels = append(m.Cancels, endpoint)
}

func (m *RecordingMetrics) RecordError(_, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, errorType)
}

// MetricsSnapshot is a point-in-time copy of RecordingMetrics.
type MetricsSnapshot struct {
	Requests   []RequestRecord
	Retries    []int
	RateLimits []time.Duration
	Cancels    []string
	Errors     []string
}

// Snapshot returns a copy safe to inspect while calls are still running.
func (m *RecordingMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Requests:   append([]RequestRecord(nil), m.Requests...),
		Retries:    append([]int(nil), m.Retries...),
		RateLimits: append([]time.Duration(nil), m.RateLimits...),
		Cancels:    append([]string(nil), m.Cancels...),
		Errors:     append([]string(nil), m.Errors...),
	}
}
