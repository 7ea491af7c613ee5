package testutil

import (
	"io"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"

	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/transport"
)

// Responder produces the outcome of a fake call.
type Responder func(req *message.Request) (*message.Response, error)

// FakeEngine is a counting in-memory transport.Engine.
//
// By default every enqueued call completes synchronously with the result of
// its Responder. In manual mode calls stay pending until the test completes,
// fails or cancels them.
type FakeEngine struct {
	respond    Responder
	manual     bool
	newCallErr error

	newCalls atomic.Int32

	mu    sync.Mutex
	calls []*FakeCall
}

// FakeOption configures a FakeEngine.
type FakeOption func(*FakeEngine)

// Respond sets the function answering each call.
func Respond(fn Responder) FakeOption {
	return func(e *FakeEngine) {
		e.respond = fn
	}
}

// RespondWith answers every call with a fresh streamed response.
func RespondWith(status int, header map[string]string, body string) FakeOption {
	return Respond(func(req *message.Request) (*message.Response, error) {
		headers := message.NewHeaders()
		for k, v := range header {
			headers.Set(k, v)
		}
		return message.NewResponse(req, status, headers, io.NopCloser(strings.NewReader(body))), nil
	})
}

// FailWith fails every call with err.
func FailWith(err error) FakeOption {
	return Respond(func(*message.Request) (*message.Response, error) {
		return nil, err
	})
}

// Manual leaves enqueued calls pending.
func Manual() FakeOption {
	return func(e *FakeEngine) {
		e.manual = true
	}
}

// FailNewCall makes NewCall itself return err.
func FailNewCall(err error) FakeOption {
	return func(e *FakeEngine) {
		e.newCallErr = err
	}
}

// NewFakeEngine creates a fake engine answering 200 with an empty body unless
// configured otherwise.
func NewFakeEngine(opts ...FakeOption) *FakeEngine {
	e := &FakeEngine{}
	RespondWith(200, nil, "")(e)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// NewCall records and returns a new FakeCall.
//
//nolint:ireturn // Engine contract returns the Call interface
func (e *FakeEngine) NewCall(req *message.Request) (transport.Call, error) {
	e.newCalls.Inc()
	if e.newCallErr != nil {
		return nil, e.newCallErr
	}

	call := &FakeCall{
		engine:   e,
		req:      req,
		enqueued: make(chan struct{}),
	}

	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.mu.Unlock()

	return call, nil
}

// NewCallCount returns how many times NewCall was invoked.
func (e *FakeEngine) NewCallCount() int {
	return int(e.newCalls.Load())
}

// Calls returns the calls created so far.
func (e *FakeEngine) Calls() []*FakeCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*FakeCall(nil), e.calls...)
}

// LastCall returns the most recent call, or nil.
func (e *FakeEngine) LastCall() *FakeCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.calls) == 0 {
		return nil
	}
	return e.calls[len(e.calls)-1]
}

// FakeCall is a transport.Call recorded by FakeEngine.
type FakeCall struct {
	engine *FakeEngine
	req    *message.Request

	mu       sync.Mutex
	cb       transport.Callback
	enqueued chan struct{}

	executed  atomic.Bool
	completed atomic.Bool
	canceled  atomic.Bool
	cancels   atomic.Int32
	enqueues  atomic.Int32
}

func (c *FakeCall) Request() *message.Request {
	return c.req
}

func (c *FakeCall) Enqueue(cb transport.Callback) {
	c.enqueues.Inc()
	if !c.executed.CompareAndSwap(false, true) {
		cb.OnFailure(c, transport.ErrAlreadyExecuted)
		return
	}

	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
	close(c.enqueued)

	if c.canceled.Load() {
		c.Fail(errors.Mark(errors.New("canceled before enqueue"), transport.ErrCanceled))
		return
	}
	if c.engine.manual {
		return
	}

	resp, err := c.engine.respond(c.req)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Complete(resp)
}

// Cancel marks the call canceled. A pending enqueued call is failed with
// transport.ErrCanceled, like a real transport aborting the exchange.
func (c *FakeCall) Cancel() {
	c.cancels.Inc()
	if c.completed.Load() || !c.canceled.CompareAndSwap(false, true) {
		return
	}
	if c.executed.Load() {
		c.Fail(errors.Mark(errors.New("canceled"), transport.ErrCanceled))
	}
}

func (c *FakeCall) IsCanceled() bool {
	return c.canceled.Load()
}

func (c *FakeCall) IsExecuted() bool {
	return c.executed.Load()
}

// Complete delivers resp. It reports false when the call already finished
// or was never enqueued.
func (c *FakeCall) Complete(resp *message.Response) bool {
	cb := c.callback()
	if cb == nil || !c.completed.CompareAndSwap(false, true) {
		return false
	}
	cb.OnResponse(c, resp)
	return true
}

// Fail delivers err. It reports false when the call already finished or was
// never enqueued.
func (c *FakeCall) Fail(err error) bool {
	cb := c.callback()
	if cb == nil || !c.completed.CompareAndSwap(false, true) {
		return false
	}
	cb.OnFailure(c, err)
	return true
}

// Enqueued is closed once the call was enqueued.
func (c *FakeCall) Enqueued() <-chan struct{} {
	return c.enqueued
}

// CancelCount returns how many times Cancel was invoked.
func (c *FakeCall) CancelCount() int {
	return int(c.cancels.Load())
}

// EnqueueCount returns how many times Enqueue was invoked.
func (c *FakeCall) EnqueueCount() int {
	return int(c.enqueues.Load())
}

func (c *FakeCall) callback() transport.Callback {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cb
}
