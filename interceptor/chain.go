package interceptor

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/message"
)

var (
	// ErrNilResponse is returned when an interceptor or the terminal
	// returns a nil Single.
	ErrNilResponse = errors.New("interceptor returned a nil response")

	// ErrNextReused is returned when Proceed is called a second time on the
	// same Next. To retry, resubscribe the Single that Proceed returned.
	ErrNextReused = errors.New("next called more than once")

	// ErrNilRequest is returned when a nil request enters the chain.
	ErrNilRequest = errors.New("nil request")
)

// Terminal performs the exchange once every interceptor has proceeded.
type Terminal func(req *message.Request) *async.Single[*message.Response]

// Chain is an immutable ordered list of interceptors in front of a terminal.
// It is safe for concurrent use.
type Chain struct {
	interceptors []Interceptor
	terminal     Terminal
}

// NewChain builds a chain. Nil interceptors are skipped.
func NewChain(terminal Terminal, interceptors ...Interceptor) *Chain {
	kept := make([]Interceptor, 0, len(interceptors))
	for _, i := range interceptors {
		if i != nil {
			kept = append(kept, i)
		}
	}

	return &Chain{
		interceptors: kept,
		terminal:     terminal,
	}
}

// Len returns the number of interceptors.
func (c *Chain) Len() int {
	return len(c.interceptors)
}

// Invoke returns a Single that runs the chain for req on demand. Building it
// has no side effects.
func (c *Chain) Invoke(req *message.Request) *async.Single[*message.Response] {
	return c.step(0, req)
}

func (c *Chain) step(index int, req *message.Request) *async.Single[*message.Response] {
	return async.Defer(func() *async.Single[*message.Response] {
		if req == nil {
			return async.Fail[*message.Response](ErrNilRequest)
		}

		var out *async.Single[*message.Response]
		if index < len(c.interceptors) {
			out = c.interceptors[index].Intercept(req, &next{chain: c, index: index + 1})
		} else if c.terminal != nil {
			out = c.terminal(req)
		}

		if out == nil {
			return async.Fail[*message.Response](errors.Wrapf(ErrNilResponse, "chain position %d", index))
		}
		return out
	})
}

type next struct {
	chain *Chain
	index int
	used  atomic.Bool
}

func (n *next) Proceed(req *message.Request) *async.Single[*message.Response] {
	if !n.used.CompareAndSwap(false, true) {
		return async.Fail[*message.Response](ErrNextReused)
	}
	return n.chain.step(n.index, req)
}
