package retry

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/transport"
)

func TestShouldRetry(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		statusCode int
		want       bool
	}{
		{
			name:       "429 Too Many Requests",
			statusCode: 429,
			want:       true,
		},
		{
			name:       "500 Internal Server Error",
			statusCode: 500,
			want:       true,
		},
		{
			name:       "502 Bad Gateway",
			statusCode: 502,
			want:       true,
		},
		{
			name:       "503 Service Unavailable",
			statusCode: 503,
			want:       true,
		},
		{
			name:       "504 Gateway Timeout",
			statusCode: 504,
			want:       true,
		},
		{
			name:       "200 OK",
			statusCode: 200,
			want:       false,
		},
		{
			name:       "400 Bad Request",
			statusCode: 400,
			want:       false,
		},
		{
			name:       "401 Unauthorized",
			statusCode: 401,
			want:       false,
		},
		{
			name:       "403 Forbidden",
			statusCode: 403,
			want:       false,
		},
		{
			name:       "404 Not Found",
			statusCode: 404,
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ShouldRetry(tt.statusCode); got != tt.want {
				t.Errorf("ShouldRetry(%d) = %v, want %v", tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{
			name:   "empty header",
			header: "",
			want:   0,
		},
		{
			name:   "valid seconds - 60",
			header: "60",
			want:   60 * time.Second,
		},
		{
			name:   "valid seconds - 120",
			header: "120",
			want:   120 * time.Second,
		},
		{
			name:   "valid seconds - 1",
			header: "1",
			want:   1 * time.Second,
		},
		{
			name:   "valid seconds - 0",
			header: "0",
			want:   0,
		},
		{
			name:   "invalid format - text",
			header: "invalid",
			want:   0,
		},
		{
			name:   "HTTP date in the future",
			header: "Wed, 21 Oct 2015 07:30:00 GMT",
			want:   2 * time.Minute,
		},
		{
			name:   "HTTP date in the past",
			header: "Wed, 21 Oct 2015 07:20:00 GMT",
			want:   0,
		},
		{
			name:   "surrounding whitespace",
			header: " 5 ",
			want:   5 * time.Second,
		},
		{
			name:   "invalid format - float",
			header: "60.5",
			want:   0,
		},
		{
			name:   "invalid format - negative",
			header: "-1",
			want:   0,
		},
	}

	now := time.Date(2015, time.October, 21, 7, 28, 0, 0, time.UTC)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseRetryAfter(tt.header, now); got != tt.want {
				t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestShouldRetryError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "connection", err: errors.Mark(errors.New("refused"), transport.ErrConnection), want: true},
		{name: "timeout", err: errors.Mark(errors.New("slow"), transport.ErrTimeout), want: true},
		{name: "unclassified", err: errors.New("eof"), want: true},
		{name: "canceled call", err: errors.Mark(errors.New("stop"), transport.ErrCanceled), want: false},
		{name: "context canceled", err: errors.Wrap(context.Canceled, "wait"), want: false},
		{name: "invalid request", err: errors.Mark(errors.New("bad url"), message.ErrInvalidRequest), want: false},
		{name: "panic", err: errors.Mark(errors.New("boom"), async.ErrPanic), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ShouldRetryError(tt.err); got != tt.want {
				t.Errorf("ShouldRetryError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		initial time.Duration
		attempt int
		maxWait time.Duration
		want    time.Duration
	}{
		{name: "first attempt", initial: 100 * time.Millisecond, attempt: 0, want: 100 * time.Millisecond},
		{name: "third attempt", initial: 100 * time.Millisecond, attempt: 2, want: 400 * time.Millisecond},
		{name: "capped", initial: time.Second, attempt: 5, maxWait: 10 * time.Second, want: 10 * time.Second},
		{name: "negative attempt", initial: time.Second, attempt: -3, want: time.Second},
		{name: "huge attempt capped", initial: time.Second, attempt: 1000, maxWait: time.Minute, want: time.Minute},
		{name: "overflow without cap", initial: 10 * time.Second, attempt: 30, want: math.MaxInt64},
		{name: "huge attempt without cap", initial: time.Millisecond, attempt: 1000, want: math.MaxInt64},
		{name: "largest exact shift", initial: 1, attempt: 62, want: 1 << 62},
		{name: "zero initial", initial: 0, attempt: 4, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Backoff(tt.initial, tt.attempt, tt.maxWait); got != tt.want {
				t.Errorf("Backoff(%v, %d, %v) = %v, want %v", tt.initial, tt.attempt, tt.maxWait, got, tt.want)
			}
		})
	}
}

func BenchmarkShouldRetry(b *testing.B) {
	statusCodes := []int{200, 400, 429, 500, 502, 503, 504}

	for range b.N {
		for _, code := range statusCodes {
			ShouldRetry(code)
		}
	}
}

func BenchmarkParseRetryAfter(b *testing.B) {
	headers := []string{"", "60", "120", "invalid"}

	for range b.N {
		for _, header := range headers {
			ParseRetryAfter(header)
		}
	}
}
