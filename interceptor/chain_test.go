package interceptor_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/lexfrei/go-asynchttp/async"
	"github.com/lexfrei/go-asynchttp/interceptor"
	"github.com/lexfrei/go-asynchttp/message"
)

func newRequest(t *testing.T) *message.Request {
	t.Helper()

	req, err := message.NewRequest(message.MethodGet, "http://example.com/items", nil)
	require.NoError(t, err)
	return req
}

// okTerminal answers every request with 200 and counts invocations.
func okTerminal(calls *atomic.Int32) interceptor.Terminal {
	return func(req *message.Request) *async.Single[*message.Response] {
		calls.Inc()
		return async.Just(message.NewBufferedResponse(req, http.StatusOK, nil, []byte("ok")))
	}
}

// tagRecorder is safe for concurrent appends.
type tagRecorder struct {
	mu   sync.Mutex
	tags []string
}

func (r *tagRecorder) add(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tag)
}

func (r *tagRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tags...)
}

func tagging(rec *tagRecorder, name string) interceptor.Interceptor {
	return interceptor.Func(func(req *message.Request, next interceptor.Next) *async.Single[*message.Response] {
		rec.add(name + "-before")
		return async.Map(next.Proceed(req), func(resp *message.Response) (*message.Response, error) {
			rec.add(name + "-after")
			return resp, nil
		})
	})
}

func TestChainOrdering(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := &tagRecorder{}
	chain := interceptor.NewChain(okTerminal(&calls), tagging(rec, "I1"), tagging(rec, "I2"))

	resp, err := chain.Invoke(newRequest(t)).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	assert.Equal(t, []string{"I1-before", "I2-before", "I2-after", "I1-after"}, rec.list())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 2, chain.Len())
}

func TestChainIsLazy(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := &tagRecorder{}
	chain := interceptor.NewChain(okTerminal(&calls), tagging(rec, "I1"))

	single := chain.Invoke(newRequest(t))
	sub := single.Subscribe(async.Observer[*message.Response]{})

	assert.Empty(t, rec.list())
	assert.Zero(t, calls.Load())

	sub.Cancel()
	sub.Request(1)
	assert.Empty(t, rec.list())
	assert.Zero(t, calls.Load())
}

func TestChainShortCircuit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := &tagRecorder{}

	cached := interceptor.Func(func(req *message.Request, _ interceptor.Next) *async.Single[*message.Response] {
		rec.add("cache")
		return async.Just(message.NewBufferedResponse(req, http.StatusNotModified, nil, nil))
	})

	chain := interceptor.NewChain(okTerminal(&calls), cached, tagging(rec, "later"))

	resp, err := chain.Invoke(newRequest(t)).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode())
	assert.Equal(t, []string{"cache"}, rec.list())
	assert.Zero(t, calls.Load())
}

func TestChainResubscribeRerunsChain(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := &tagRecorder{}
	chain := interceptor.NewChain(okTerminal(&calls), tagging(rec, "I1"))

	single := chain.Invoke(newRequest(t))
	for range 2 {
		_, err := single.Await(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"I1-before", "I1-after", "I1-before", "I1-after"}, rec.list())
}

func TestRetryByResubscribing(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	flaky := func(req *message.Request) *async.Single[*message.Response] {
		if calls.Inc() < 3 {
			return async.Fail[*message.Response](errors.New("transient"))
		}
		return async.Just(message.NewBufferedResponse(req, http.StatusOK, nil, nil))
	}

	retry := interceptor.Func(func(req *message.Request, next interceptor.Next) *async.Single[*message.Response] {
		downstream := next.Proceed(req)

		var attempt func(left int) *async.Single[*message.Response]
		attempt = func(left int) *async.Single[*message.Response] {
			return async.Recover(downstream, func(err error) *async.Single[*message.Response] {
				if left == 0 {
					return async.Fail[*message.Response](err)
				}
				return attempt(left - 1)
			})
		}
		return attempt(3)
	})

	chain := interceptor.NewChain(flaky, retry)
	resp, err := chain.Invoke(newRequest(t)).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, int32(3), calls.Load())
}

func TestNextReuseFails(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	twice := interceptor.Func(func(req *message.Request, next interceptor.Next) *async.Single[*message.Response] {
		_ = next.Proceed(req)
		return next.Proceed(req)
	})

	chain := interceptor.NewChain(okTerminal(&calls), twice)
	_, err := chain.Invoke(newRequest(t)).Await(context.Background())
	require.ErrorIs(t, err, interceptor.ErrNextReused)
	assert.Zero(t, calls.Load(), "the discarded first continuation was never subscribed")
}

func TestChainFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	boom := errors.New("boom")

	tests := []struct {
		name  string
		chain *interceptor.Chain
		req   *message.Request
		want  error
	}{
		{
			name: "nil single",
			chain: interceptor.NewChain(okTerminal(&calls), interceptor.Func(
				func(*message.Request, interceptor.Next) *async.Single[*message.Response] { return nil })),
			req:  newRequest(t),
			want: interceptor.ErrNilResponse,
		},
		{
			name:  "nil terminal",
			chain: interceptor.NewChain(nil),
			req:   newRequest(t),
			want:  interceptor.ErrNilResponse,
		},
		{
			name: "panicking interceptor",
			chain: interceptor.NewChain(okTerminal(&calls), interceptor.Func(
				func(*message.Request, interceptor.Next) *async.Single[*message.Response] { panic("bad") })),
			req:  newRequest(t),
			want: async.ErrPanic,
		},
		{
			name:  "nil request",
			chain: interceptor.NewChain(okTerminal(&calls)),
			want:  interceptor.ErrNilRequest,
		},
		{
			name: "request rewrite error",
			chain: interceptor.NewChain(okTerminal(&calls), interceptor.OnRequest(
				func(*message.Request) (*message.Request, error) { return nil, boom })),
			req:  newRequest(t),
			want: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := tt.chain.Invoke(tt.req).Await(context.Background())
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, resp)
		})
	}
}

func TestOuterInterceptorRecoversInnerFailure(t *testing.T) {
	t.Parallel()

	failing := func(*message.Request) *async.Single[*message.Response] {
		return async.Fail[*message.Response](errors.New("connection refused"))
	}

	fallback := interceptor.Func(func(req *message.Request, next interceptor.Next) *async.Single[*message.Response] {
		return async.Recover(next.Proceed(req), func(error) *async.Single[*message.Response] {
			return async.Just(message.NewBufferedResponse(req, http.StatusServiceUnavailable, nil, nil))
		})
	})

	resp, err := interceptor.NewChain(failing, fallback).Invoke(newRequest(t)).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode())
}

func TestRequestRewriteIsCopyOnModify(t *testing.T) {
	t.Parallel()

	var seen *message.Request
	terminal := func(req *message.Request) *async.Single[*message.Response] {
		seen = req
		return async.Just(message.NewBufferedResponse(req, http.StatusOK, nil, nil))
	}

	auth := interceptor.OnRequest(func(req *message.Request) (*message.Request, error) {
		return req.WithHeader("Authorization", "Bearer t"), nil
	})
	stamp := interceptor.OnResponse(func(resp *message.Response) (*message.Response, error) {
		return resp.WithHeader("X-Stamped", "yes"), nil
	})

	original := newRequest(t)
	resp, err := interceptor.NewChain(terminal, stamp, auth).Invoke(original).Await(context.Background())
	require.NoError(t, err)

	v, ok := seen.Header("authorization")
	assert.True(t, ok)
	assert.Equal(t, "Bearer t", v)

	_, ok = original.Header("Authorization")
	assert.False(t, ok)

	v, ok = resp.Header("X-Stamped")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
}

func TestCancelReachesTerminal(t *testing.T) {
	t.Parallel()

	var canceled atomic.Int32
	started := make(chan struct{})
	pending := func(*message.Request) *async.Single[*message.Response] {
		return async.Create(func(sink *async.Sink[*message.Response]) {
			sink.OnCancel(func() { canceled.Inc() })
			close(started)
		})
	}

	rec := &tagRecorder{}
	chain := interceptor.NewChain(pending, tagging(rec, "I1"), tagging(rec, "I2"))

	sub := chain.Invoke(newRequest(t)).Subscribe(async.Observer[*message.Response]{
		Success: func(*message.Response) { t.Error("unexpected value") },
		Failure: func(error) { t.Error("unexpected error") },
	})
	sub.Request(1)
	<-started

	sub.Cancel()
	sub.Cancel()

	assert.True(t, sub.IsCanceled())
	assert.Equal(t, int32(1), canceled.Load())
	assert.Equal(t, []string{"I1-before", "I2-before"}, rec.list())
}

func TestChainConcurrentUse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	chain := interceptor.NewChain(okTerminal(&calls), interceptor.OnRequest(
		func(req *message.Request) (*message.Request, error) {
			return req.WithAddedHeader("X-Hop", "1"), nil
		}))

	req := newRequest(t)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			resp, err := chain.Invoke(req).Await(context.Background())
			assert.NoError(t, err)
			if resp != nil {
				assert.Len(t, resp.Request().Headers().Values("X-Hop"), 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(32), calls.Load())
}

func TestBlockingInterceptors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := &tagRecorder{}

	blockingTag := func(name string) interceptor.Interceptor {
		return interceptor.Blocking(func(ctx context.Context, req *message.Request, next interceptor.BlockingNext) (*message.Response, error) {
			rec.add(name + "-before")
			resp, err := next.Send(ctx, req)
			rec.add(name + "-after")
			return resp, err
		})
	}

	chain := interceptor.NewChain(okTerminal(&calls), blockingTag("I1"), tagging(rec, "I2"), blockingTag("I3"))

	resp, err := chain.Invoke(newRequest(t)).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, []string{
		"I1-before", "I2-before", "I3-before",
		"I3-after", "I2-after", "I1-after",
	}, rec.list())
}

func TestBlockingCancelPropagates(t *testing.T) {
	t.Parallel()

	var canceled atomic.Int32
	started := make(chan struct{})
	pending := func(*message.Request) *async.Single[*message.Response] {
		return async.Create(func(sink *async.Sink[*message.Response]) {
			sink.OnCancel(func() { canceled.Inc() })
			close(started)
		})
	}

	returned := make(chan error, 1)
	blocking := interceptor.Blocking(func(ctx context.Context, req *message.Request, next interceptor.BlockingNext) (*message.Response, error) {
		resp, err := next.Send(ctx, req)
		returned <- err
		return resp, err
	})

	sub := interceptor.NewChain(pending, blocking).Invoke(newRequest(t)).
		Subscribe(async.Observer[*message.Response]{})
	sub.Request(1)
	<-started

	sub.Cancel()

	select {
	case err := <-returned:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("blocking interceptor did not observe cancellation")
	}
	assert.Equal(t, int32(1), canceled.Load())
}
