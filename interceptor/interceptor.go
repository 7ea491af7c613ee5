package interceptor

import (
	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/message"
)

// Interceptor observes, rewrites or short-circuits one exchange.
type Interceptor interface {
	Intercept(req *message.Request, next Next) *async.Single[*message.Response]
}

// Func adapts a function to Interceptor.
type Func func(req *message.Request, next Next) *async.Single[*message.Response]

func (f Func) Intercept(req *message.Request, next Next) *async.Single[*message.Response] {
	return f(req, next)
}

// Next is the remainder of the chain below one interceptor invocation.
// Proceed may be called once per invocation; a Next must not be kept beyond
// the invocation it was handed to.
type Next interface {
	Proceed(req *message.Request) *async.Single[*message.Response]
}

// OnRequest returns an interceptor that rewrites each request before it
// proceeds. An error from fn fails the call without proceeding.
func OnRequest(fn func(req *message.Request) (*message.Request, error)) Interceptor {
	return Func(func(req *message.Request, next Next) *async.Single[*message.Response] {
		out, err := fn(req)
		if err != nil {
			return async.Fail[*message.Response](err)
		}
		return next.Proceed(out)
	})
}

// OnResponse returns an interceptor that transforms each successful response.
// Failures pass through untouched.
func OnResponse(fn func(resp *message.Response) (*message.Response, error)) Interceptor {
	return Func(func(req *message.Request, next Next) *async.Single[*message.Response] {
		return async.Map(next.Proceed(req), fn)
	})
}
