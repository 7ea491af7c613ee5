// Package bridge turns a callback-driven transport call into a lazy Single.
package bridge

import (
	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/interceptor"
	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/observability"
	"github.com/lexfrei/go-asynchttp/transport"
)

// ErrNewCall marks failures to create a transport call.
var ErrNewCall = errors.New("create transport call")

// New returns the terminal step of a chain, dispatching through engine.
//
// Nothing happens until the returned Single is demanded. Then exactly one call
// is created, its cancellation is tied to the subscription, and it is
// enqueued. A response that arrives after the subscription was canceled is
// closed here.
func New(engine transport.Engine, logger observability.Logger) interceptor.Terminal {
	logger = observability.OrNoop(logger)

	return func(req *message.Request) *async.Single[*message.Response] {
		return async.Create(func(sink *async.Sink[*message.Response]) {
			call, err := newCall(engine, req)
			if err != nil {
				sink.Error(err)
				return
			}

			sink.OnCancel(call.Cancel)
			if sink.IsCanceled() {
				return
			}

			call.Enqueue(&callback{sink: sink, logger: logger})
		})
	}
}

func newCall(engine transport.Engine, req *message.Request) (call transport.Call, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Mark(errors.Newf("panic while creating call: %v", r), ErrNewCall)
		}
	}()

	if engine == nil {
		return nil, errors.Mark(errors.New("no transport engine"), ErrNewCall)
	}

	call, err = engine.NewCall(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "create transport call"), ErrNewCall)
	}
	if call == nil {
		return nil, errors.Mark(errors.New("engine returned a nil call"), ErrNewCall)
	}

	return call, nil
}

type callback struct {
	sink   *async.Sink[*message.Response]
	logger observability.Logger
}

func (c *callback) OnResponse(_ transport.Call, resp *message.Response) {
	if resp == nil {
		c.sink.Error(errors.New("transport delivered a nil response"))
		return
	}
	if c.sink.Success(resp) {
		return
	}
	// Nobody will read it.
	if err := resp.Close(); err != nil {
		c.logger.Debug("closing late response", observability.F("error", err))
	}
}

func (c *callback) OnFailure(_ transport.Call, err error) {
	if !c.sink.Error(err) {
		c.logger.Debug("dropping failure of finished call", observability.F("error", err))
	}
}
