package transport

import (
	"context"
	"net"

	"github.com/cockroachdb/errors"
)

// Failure classes. Errors delivered to a Callback are marked with one of
// them, so callers can test with errors.Is.
var (
	ErrConnection      = errors.New("connection failure")
	ErrTimeout         = errors.New("call timed out")
	ErrCanceled        = errors.New("call canceled")
	ErrAlreadyExecuted = errors.New("call already executed")
)

// classify wraps err and marks it with its failure class.
func classify(err error, canceled bool) error {
	switch {
	case canceled || errors.Is(err, context.Canceled):
		return errors.Mark(errors.Wrap(err, "http call canceled"), ErrCanceled)
	case isTimeout(err):
		return errors.Mark(errors.Wrap(err, "http call timed out"), ErrTimeout)
	default:
		return errors.Mark(errors.Wrap(err, "http call failed"), ErrConnection)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ErrorType names the failure class of err for metrics labels.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrAlreadyExecuted):
		return "already_executed"
	default:
		return "other"
	}
}
