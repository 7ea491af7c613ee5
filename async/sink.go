package async

import (
	"io"
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
)

const (
	stateIdle int32 = iota
	stateStarted
	stateDone
	stateCanceled
)

// Sink is the producer side of one subscription. Success and Error race
// safely against each other and against Cancel: the first transition out of
// the started state wins and every later signal is dropped.
type Sink[T any] struct {
	state atomic.Int32
	sub   Subscriber[T]

	mu       sync.Mutex
	hooks    []func()
	released bool
}

// Success delivers v. It reports false when the subscription already
// completed or was canceled, in which case v was not delivered and the
// caller still owns it.
func (k *Sink[T]) Success(v T) bool {
	if !k.state.CompareAndSwap(stateStarted, stateDone) {
		return false
	}
	k.release()
	k.sub.OnSuccess(v)
	return true
}

// Error delivers err. It reports false when the subscription already
// completed or was canceled.
func (k *Sink[T]) Error(err error) bool {
	if err == nil {
		err = errors.New("async: nil error delivered")
	}
	if !k.state.CompareAndSwap(stateStarted, stateDone) {
		return false
	}
	k.release()
	k.sub.OnError(err)
	return true
}

// deliver hands v to sink. When the subscription is already over, nobody
// will ever see v, so a v that holds resources is closed.
func deliver[T any](sink *Sink[T], v T) {
	if sink.Success(v) {
		return
	}
	discard(v)
}

func discard(v any) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}
	if rv := reflect.ValueOf(c); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return
	}
	_ = c.Close()
}

// OnCancel registers fn to run if the subscription is canceled before it
// completes. Registering on an already canceled sink runs fn immediately.
func (k *Sink[T]) OnCancel(fn func()) {
	k.mu.Lock()
	if !k.released {
		k.hooks = append(k.hooks, fn)
		k.mu.Unlock()
		return
	}
	k.mu.Unlock()

	if k.IsCanceled() {
		fn()
	}
}

// IsCanceled reports whether the subscription was canceled.
func (k *Sink[T]) IsCanceled() bool {
	return k.state.Load() == stateCanceled
}

func (k *Sink[T]) cancel() {
	for {
		switch st := k.state.Load(); st {
		case stateIdle, stateStarted:
			if k.state.CompareAndSwap(st, stateCanceled) {
				k.release()
				return
			}
		default:
			return
		}
	}
}

// release drops the cancel hooks once the state is terminal and runs them
// when the terminal state is canceled.
func (k *Sink[T]) release() {
	k.mu.Lock()
	hooks := k.hooks
	k.hooks = nil
	k.released = true
	k.mu.Unlock()

	if !k.IsCanceled() {
		return
	}
	for _, fn := range hooks {
		fn()
	}
}

func (k *Sink[T]) run(emit func(*Sink[T])) {
	defer func() {
		if r := recover(); r != nil {
			if !k.Error(panicError(r)) && !k.IsCanceled() {
				// The panic came from a subscriber after delivery.
				panic(r)
			}
		}
	}()
	emit(k)
}
