package interceptor

import (
	"context"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/message"
)

// BlockingNext is the synchronous view of Next.
type BlockingNext interface {
	// Send runs the rest of the chain and waits for its outcome. When ctx
	// ends first, the pending call is canceled and ctx.Err() is returned.
	Send(ctx context.Context, req *message.Request) (*message.Response, error)
}

// BlockingFunc is an interceptor written in direct style.
type BlockingFunc func(ctx context.Context, req *message.Request, next BlockingNext) (*message.Response, error)

// Blocking adapts fn to Interceptor. fn runs on its own goroutine once the
// call is demanded, with a context that is canceled when the call is.
func Blocking(fn BlockingFunc) Interceptor {
	return Func(func(req *message.Request, next Next) *async.Single[*message.Response] {
		return async.Go(req.Context(), func(ctx context.Context) (*message.Response, error) {
			return fn(ctx, req, blockingNext{next: next})
		})
	})
}

type blockingNext struct {
	next Next
}

func (b blockingNext) Send(ctx context.Context, req *message.Request) (*message.Response, error) {
	return b.next.Proceed(req).Await(ctx)
}
