package asynchttp

import (
	"context"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/config"
	"github.com/lexfrei/go-asynchttp/interceptor"
	"github.com/lexfrei/go-asynchttp/internal/bridge"
	"github.com/lexfrei/go-asynchttp/internal/response"
	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/observability"
	"github.com/lexfrei/go-asynchttp/transport"
)

// AsyncResponse is the lazy result of Send. It is cold: every subscription
// runs the whole interceptor chain and issues its own transport call once
// demand is signaled.
type AsyncResponse = async.Single[*message.Response]

// ErrUnexpectedStatus marks errors from DoJSON when the response status is
// not the expected one.
var ErrUnexpectedStatus = response.ErrUnexpectedStatus

// Client sends requests through an immutable interceptor chain. It is safe
// for concurrent use.
type Client struct {
	engine transport.Engine
	chain  *interceptor.Chain
	logger observability.Logger
}

// New creates a client. Without WithEngine a net/http based transport is
// built from the transport options.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	engine := o.engine
	if engine == nil {
		httpEngine, err := transport.NewHTTPEngine(o.transport,
			transport.WithTLSConfig(o.tlsConfig),
			transport.WithMiddleware(o.network...),
			transport.WithLogger(o.logger),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create transport")
		}
		engine = httpEngine
	}

	return &Client{
		engine: engine,
		chain:  interceptor.NewChain(bridge.New(engine, o.logger), o.pipeline()...),
		logger: observability.OrNoop(o.logger),
	}, nil
}

// NewFromConfig creates a client from a loaded configuration with a zerolog
// logger built from cfg.Log writing to stderr. opts are applied afterwards
// and may override any setting.
func NewFromConfig(cfg config.Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}

	return New(append([]Option{FromConfig(cfg), WithLogger(logger)}, opts...)...)
}

// Send returns the lazy result of req. No work happens until the result is
// subscribed and demand is requested; canceling the subscription cancels the
// call. A nil request yields a failed result.
func (c *Client) Send(req *message.Request) *AsyncResponse {
	return c.chain.Invoke(req)
}

// Do sends req and waits for the response headers. When ctx ends first the
// call is canceled and ctx.Err() is returned. The caller owns the response
// and must close it.
func (c *Client) Do(ctx context.Context, req *message.Request) (*message.Response, error) {
	return c.Send(req).Await(ctx)
}

// Engine returns the transport the client sends through.
//
//nolint:ireturn // the engine is pluggable
func (c *Client) Engine() transport.Engine {
	return c.engine
}

// Interceptors returns the number of interceptors in the chain, built-in ones
// included.
func (c *Client) Interceptors() int {
	return c.chain.Len()
}

// CloseIdleConnections closes idle keep-alive connections of the default
// transport. It is a no-op for other engines.
func (c *Client) CloseIdleConnections() {
	if e, ok := c.engine.(*transport.HTTPEngine); ok {
		e.HTTPClient().CloseIdleConnections()
	}
}

// DoJSON sends req, expects 200 OK and decodes the JSON body into a new T.
// The response is always closed.
//
// Usage:
//
//	item, err := asynchttp.DoJSON[Item](ctx, client, req)
func DoJSON[T any](ctx context.Context, c *Client, req *message.Request) (*T, error) {
	return DoJSONWithStatus[T](ctx, c, req, http.StatusOK)
}

// DoJSONWithStatus is like DoJSON but allows specifying the expected status
// code (e.g. 201 Created).
func DoJSONWithStatus[T any](ctx context.Context, c *Client, req *message.Request, expectedStatus int) (*T, error) {
	resp, err := c.Do(ctx, req)
	return response.HandleWithStatus[T](resp, err, describe(req), expectedStatus)
}

// DoNoContent sends req, expects expectedStatus and discards the body.
func DoNoContent(ctx context.Context, c *Client, req *message.Request, expectedStatus int) error {
	resp, err := c.Do(ctx, req)
	return response.HandleNoContentWithStatus(resp, err, describe(req), expectedStatus)
}

func describe(req *message.Request) string {
	if req == nil {
		return "request failed"
	}
	return string(req.Method()) + " " + req.URL().Redacted()
}
