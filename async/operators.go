package async

import (
	"context"
)

// Just returns a Single that succeeds with v.
func Just[T any](v T) *Single[T] {
	return Create(func(sink *Sink[T]) {
		deliver(sink, v)
	})
}

// Fail returns a Single that fails with err.
func Fail[T any](err error) *Single[T] {
	return Create(func(sink *Sink[T]) {
		sink.Error(err)
	})
}

// Defer calls supplier on demand and mirrors the Single it returns.
// A panic in supplier or a nil result fails the subscription.
func Defer[T any](supplier func() *Single[T]) *Single[T] {
	return Create(func(sink *Sink[T]) {
		src, err := callSafely(func() (*Single[T], error) {
			return supplier(), nil
		})
		if err != nil {
			sink.Error(err)
			return
		}
		if src == nil {
			sink.Error(ErrNilSingle)
			return
		}
		forward(sink, src)
	})
}

// Handle transforms the outcome of src, successful or not.
func Handle[T, U any](src *Single[T], fn func(T, error) (U, error)) *Single[U] {
	return Create(func(sink *Sink[U]) {
		watch(sink, src, func(v T, srcErr error) {
			out, err := callSafely(func() (U, error) {
				return fn(v, srcErr)
			})
			if err != nil {
				sink.Error(err)
				return
			}
			deliver(sink, out)
		})
	})
}

// Map transforms the value of src. Errors from src pass through untouched.
func Map[T, U any](src *Single[T], fn func(T) (U, error)) *Single[U] {
	return Handle(src, func(v T, err error) (U, error) {
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

// FlatMap continues src with the Single returned by fn.
func FlatMap[T, U any](src *Single[T], fn func(T) *Single[U]) *Single[U] {
	return Create(func(sink *Sink[U]) {
		watch(sink, src, func(v T, err error) {
			if err != nil {
				sink.Error(err)
				return
			}
			forward(sink, Defer(func() *Single[U] { return fn(v) }))
		})
	})
}

// Recover replaces a failure of src with the Single returned by fn.
func Recover[T any](src *Single[T], fn func(error) *Single[T]) *Single[T] {
	return Create(func(sink *Sink[T]) {
		watch(sink, src, func(v T, err error) {
			if err == nil {
				deliver(sink, v)
				return
			}
			forward(sink, Defer(func() *Single[T] { return fn(err) }))
		})
	})
}

// Go runs fn on its own goroutine once demand arrives. Canceling the
// subscription cancels the context handed to fn.
func Go[T any](parent context.Context, fn func(ctx context.Context) (T, error)) *Single[T] {
	return Create(func(sink *Sink[T]) {
		ctx, cancel := context.WithCancel(parent)
		sink.OnCancel(cancel)

		go func() {
			defer cancel()

			v, err := callSafely(func() (T, error) {
				return fn(ctx)
			})
			if err != nil {
				sink.Error(err)
				return
			}
			deliver(sink, v)
		}()
	})
}

// Forward mirrors src into the sink. Canceling the sink cancels src.
func (k *Sink[T]) Forward(src *Single[T]) {
	if src == nil {
		k.Error(ErrNilSingle)
		return
	}
	forward(k, src)
}

// forward mirrors src into sink, propagating cancellation downward. A value
// that arrives after sink was canceled is closed if it is an io.Closer.
func forward[T any](sink *Sink[T], src *Single[T]) {
	watch(sink, src, func(v T, err error) {
		if err != nil {
			sink.Error(err)
			return
		}
		deliver(sink, v)
	})
}

// watch subscribes to src on behalf of sink and hands its outcome to done.
// The cancel hook is registered before demand so a cancel that races a
// synchronous emitter still reaches src.
func watch[T, U any](sink *Sink[U], src *Single[T], done func(T, error)) {
	sub := src.Subscribe(Observer[T]{
		Success: func(v T) { done(v, nil) },
		Failure: func(err error) {
			var zero T
			done(zero, err)
		},
	})
	sink.OnCancel(sub.Cancel)
	sub.Request(1)
}
