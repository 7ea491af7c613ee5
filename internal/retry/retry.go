// Package retry holds the retry policy shared by the retry interceptor.
package retry

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/transport"
)

// ShouldRetry returns true if the HTTP status code indicates a retryable error.
// Retryable errors include:
//   - 429 (Too Many Requests) - rate limit exceeded
//   - 5xx (Server Errors) - temporary server-side issues
func ShouldRetry(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// ShouldRetryError reports whether a failed call is worth repeating.
// Cancellation, malformed requests and recovered panics are final.
func ShouldRetryError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, transport.ErrCanceled),
		errors.Is(err, context.Canceled),
		errors.Is(err, transport.ErrAlreadyExecuted),
		errors.Is(err, message.ErrInvalidRequest),
		errors.Is(err, async.ErrPanic):
		return false
	default:
		return true
	}
}

// ParseRetryAfter parses the Retry-After HTTP header and returns the duration to wait.
// The Retry-After header can contain either:
//   - Number of seconds (e.g., "120")
//   - HTTP-date (e.g., "Wed, 21 Oct 2015 07:28:00 GMT"), measured from now
//
// Returns 0 if the header is empty, cannot be parsed, or names a past date.
func ParseRetryAfter(retryAfterHeader string) time.Duration {
	return parseRetryAfter(retryAfterHeader, time.Now())
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if wait := at.Sub(now); wait > 0 {
			return wait
		}
	}

	return 0
}

// Backoff returns initial * 2^attempt, capped at maxWait when maxWait is
// positive and at math.MaxInt64 nanoseconds otherwise. A non-positive
// initial wait yields zero.
func Backoff(initial time.Duration, attempt int, maxWait time.Duration) time.Duration {
	if initial <= 0 {
		return 0
	}

	ceiling := maxWait
	if ceiling <= 0 {
		ceiling = math.MaxInt64
	}

	attempt = max(attempt, 0)
	if attempt >= 63 || initial > ceiling>>attempt {
		return ceiling
	}
	return initial << attempt
}
