package middleware

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/message"
)

// after runs fn once d has elapsed. If the subscription is canceled first,
// abort runs instead; if ctx ends first, abort runs and the sink fails with
// the context error.
func after(
	ctx context.Context,
	sink *async.Sink[*message.Response],
	d time.Duration,
	reason string,
	fn func(),
	abort func(),
) {
	canceled := make(chan struct{})
	sink.OnCancel(func() { close(canceled) })

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			fn()
		case <-canceled:
			if abort != nil {
				abort()
			}
		case <-ctx.Done():
			if abort != nil {
				abort()
			}
			sink.Error(errors.Wrapf(ctx.Err(), "context done during %s", reason))
		}
	}()
}
