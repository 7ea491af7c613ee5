package async

import (
	"context"

	"github.com/cockroachdb/errors"
)

var (
	// ErrPanic marks errors recovered from a panicking emitter or callback.
	ErrPanic = errors.New("async: recovered panic")

	// ErrNilSingle is delivered when a supplier returns a nil Single.
	ErrNilSingle = errors.New("async: supplier returned nil single")
)

// Subscription is the consumer side handle of one subscription.
type Subscription interface {
	// Request signals demand for n items. The first positive request starts
	// the work; later requests and non-positive ones are ignored.
	Request(n int64)

	// Cancel stops the subscription. Before demand it prevents the work from
	// ever starting; after completion it does nothing.
	Cancel()

	// IsCanceled reports whether Cancel took effect before completion.
	IsCanceled() bool
}

// Subscriber receives the outcome of a subscription.
// Exactly one of OnSuccess or OnError is called, unless the subscription is
// canceled first, in which case neither is.
type Subscriber[T any] interface {
	OnSubscribe(Subscription)
	OnSuccess(T)
	OnError(error)
}

// Observer adapts plain functions to Subscriber. Nil functions are skipped.
type Observer[T any] struct {
	Subscribed func(Subscription)
	Success    func(T)
	Failure    func(error)
}

// OnSubscribe implements Subscriber.
func (o Observer[T]) OnSubscribe(s Subscription) {
	if o.Subscribed != nil {
		o.Subscribed(s)
	}
}

// OnSuccess implements Subscriber.
func (o Observer[T]) OnSuccess(v T) {
	if o.Success != nil {
		o.Success(v)
	}
}

// OnError implements Subscriber.
func (o Observer[T]) OnError(err error) {
	if o.Failure != nil {
		o.Failure(err)
	}
}

// Single is a lazy asynchronous value producing one result per subscription.
type Single[T any] struct {
	emit func(*Sink[T])
}

// Create returns a Single whose emitter runs once per subscription, on the
// goroutine that first requests demand. The emitter completes the Sink either
// synchronously or later from any goroutine.
func Create[T any](emit func(*Sink[T])) *Single[T] {
	return &Single[T]{emit: emit}
}

// Subscribe attaches sub and returns its Subscription. No work is performed
// until the subscription receives a positive Request.
func (s *Single[T]) Subscribe(sub Subscriber[T]) Subscription {
	sn := &subscription[T]{
		sink: &Sink[T]{sub: sub},
		emit: s.emit,
	}
	sub.OnSubscribe(sn)
	return sn
}

// Await subscribes, requests the value and blocks until it is delivered or
// ctx is done. When ctx ends first the subscription is canceled and ctx.Err()
// is returned, unless completion already won the race.
func (s *Single[T]) Await(ctx context.Context) (T, error) {
	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	sub := s.Subscribe(Observer[T]{
		Success: func(v T) { done <- result{value: v} },
		Failure: func(err error) { done <- result{err: err} },
	})
	sub.Request(1)

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		sub.Cancel()
		if sub.IsCanceled() {
			var zero T
			return zero, ctx.Err()
		}
		// Completion won; its delivery is in flight.
		r := <-done
		return r.value, r.err
	}
}

type subscription[T any] struct {
	sink *Sink[T]
	emit func(*Sink[T])
}

func (s *subscription[T]) Request(n int64) {
	if n <= 0 {
		return
	}
	if !s.sink.state.CompareAndSwap(stateIdle, stateStarted) {
		return
	}
	s.sink.run(s.emit)
}

func (s *subscription[T]) Cancel() {
	s.sink.cancel()
}

func (s *subscription[T]) IsCanceled() bool {
	return s.sink.IsCanceled()
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return errors.Mark(errors.Wrap(err, "async: recovered panic"), ErrPanic)
	}
	return errors.Mark(errors.Newf("async: recovered panic: %v", r), ErrPanic)
}

// callSafely runs fn and converts a panic into an ErrPanic-marked error.
func callSafely[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn()
}
