package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/observability"
)

// HTTPEngine is an Engine backed by net/http.
type HTTPEngine struct {
	cfg        Config
	client     *http.Client
	dispatcher *semaphore.Weighted
	logger     observability.Logger

	base       http.RoundTripper
	tlsConfig  *tls.Config
	middleware []Middleware

	running atomic.Int64
	queued  atomic.Int64
}

// NewHTTPEngine creates an engine. Zero fields of cfg take their defaults.
func NewHTTPEngine(cfg Config, opts ...Option) (*HTTPEngine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &HTTPEngine{
		cfg:        cfg,
		dispatcher: semaphore.NewWeighted(int64(cfg.MaxRequests)),
		logger:     observability.NoopLogger(),
	}

	for _, opt := range opts {
		opt(engine)
	}

	rt := engine.base
	if rt == nil {
		built, err := newTransport(&cfg)
		if err != nil {
			return nil, err
		}
		rt = built

		tlsConfig := engine.tlsConfig
		if tlsConfig == nil && cfg.InsecureSkipVerify {
			tlsConfig = InsecureSkipVerify()
		}
		if tlsConfig != nil {
			rt = TLSConfig(tlsConfig)(rt)
		}
	}

	if cfg.Compression {
		rt = Compression()(rt)
	}

	engine.client = &http.Client{
		Transport: chain(rt, engine.middleware),
		Timeout:   cfg.CallTimeout,
	}

	return engine, nil
}

func newTransport(cfg *Config) (*http.Transport, error) {
	defaultTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("http.DefaultTransport is not an *http.Transport")
	}

	transport := defaultTransport.Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = cfg.ReadTimeout
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	transport.IdleConnTimeout = cfg.IdleConnTimeout

	proxy, err := cfg.proxy()
	if err != nil {
		return nil, err
	}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}

	return transport, nil
}

// NewCall creates an unstarted call for req.
//
//nolint:ireturn // Engine contract returns the Call interface
func (e *HTTPEngine) NewCall(req *message.Request) (Call, error) {
	if req == nil {
		return nil, errors.Mark(errors.New("nil request"), message.ErrInvalidRequest)
	}

	ctx, cancel := context.WithCancel(req.Context())

	return &httpCall{
		engine: e,
		req:    req,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// RunningCalls returns the number of calls currently on the wire.
func (e *HTTPEngine) RunningCalls() int {
	return int(e.running.Load())
}

// QueuedCalls returns the number of enqueued calls waiting for a dispatcher slot.
func (e *HTTPEngine) QueuedCalls() int {
	return int(e.queued.Load())
}

// HTTPClient returns the underlying http.Client.
func (e *HTTPEngine) HTTPClient() *http.Client {
	return e.client
}

// Config returns the effective configuration.
func (e *HTTPEngine) Config() Config {
	return e.cfg
}

const (
	callPending int32 = iota
	callCompleted
	callCanceled
)

type httpCall struct {
	engine *HTTPEngine
	req    *message.Request
	ctx    context.Context
	cancel context.CancelFunc

	executed atomic.Bool
	state    atomic.Int32
}

func (c *httpCall) Request() *message.Request {
	return c.req
}

func (c *httpCall) IsExecuted() bool {
	return c.executed.Load()
}

func (c *httpCall) IsCanceled() bool {
	return c.state.Load() == callCanceled
}

func (c *httpCall) Cancel() {
	if c.state.CompareAndSwap(callPending, callCanceled) {
		c.cancel()
	}
}

func (c *httpCall) Enqueue(cb Callback) {
	if !c.executed.CompareAndSwap(false, true) {
		cb.OnFailure(c, errors.Wrapf(ErrAlreadyExecuted, "%s %s", c.req.Method(), c.req.URL()))
		return
	}

	c.engine.queued.Inc()
	go c.execute(cb)
}

func (c *httpCall) execute(cb Callback) {
	engine := c.engine
	logger := engine.logger.With(
		observability.F("method", string(c.req.Method())),
		observability.F("url", c.req.URL().Redacted()),
	)

	err := engine.dispatcher.Acquire(c.ctx, 1)
	engine.queued.Dec()
	if err != nil {
		c.fail(cb, logger, err)
		return
	}

	engine.running.Inc()
	defer func() {
		engine.running.Dec()
		engine.dispatcher.Release(1)
	}()

	httpReq, err := message.ToHTTPRequest(c.ctx, c.req)
	if err != nil {
		c.finishFailed()
		cb.OnFailure(c, err)
		return
	}

	logger.Debug("http call started")

	resp, err := engine.client.Do(httpReq) //nolint:bodyclose // ownership moves to the callback
	if err != nil {
		c.fail(cb, logger, err)
		return
	}

	if !c.state.CompareAndSwap(callPending, callCompleted) {
		_ = resp.Body.Close()
		c.fail(cb, logger, context.Canceled)
		return
	}

	logger.Debug("http call completed", observability.F("status", resp.StatusCode))

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: c.cancel}
	cb.OnResponse(c, message.FromHTTPResponse(c.req, resp))
}

// fail delivers err to cb, classified. The call context is released.
func (c *httpCall) fail(cb Callback, logger observability.Logger, err error) {
	canceled := c.IsCanceled()
	c.finishFailed()

	classified := classify(err, canceled)
	if canceled {
		logger.Debug("http call canceled")
	} else {
		logger.Debug("http call failed", observability.F("error", classified))
	}
	cb.OnFailure(c, classified)
}

func (c *httpCall) finishFailed() {
	c.state.CompareAndSwap(callPending, callCompleted)
	c.cancel()
}

// cancelOnClose releases the call context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err //nolint:wrapcheck // body close errors pass through unchanged
}
