// Package transport is the boundary between the asynchronous client and the
// wire. An Engine creates Calls; a Call is enqueued once with a Callback that
// is invoked exactly once with either a response or a failure, and may be
// canceled at any time.
//
// HTTPEngine is the default Engine, backed by net/http. It bounds concurrent
// calls with a dispatcher, classifies failures, and wraps its RoundTripper
// in network-level middleware:
//
//	engine, err := transport.NewHTTPEngine(transport.DefaultConfig(),
//		transport.WithMiddleware(transport.Compression()),
//	)
package transport
