package future

import (
	"sync"
	"time"
)

type result[T any] struct {
	v   T
	err error
}

// Future is a single-shot result that completes exactly once.
type Future[T any] struct {
	doneChannel chan struct{}
	res         result[T]
	once        sync.Once

	mu        sync.Mutex
	callbacks []func(T, error)
}

// New runs fn in a goroutine and completes the Future when fn returns.
func New[T any](fn func() (T, error)) *Future[T] {
	f := Pending[T]()
	go func() {
		v, err := fn()
		f.complete(v, err)
	}()
	return f
}

// Pending creates a Future that is completed later by Resolve or Reject.
func Pending[T any]() *Future[T] {
	return &Future[T]{doneChannel: make(chan struct{})}
}

// FromValue creates an already-completed Future with a value.
func FromValue[T any](v T) *Future[T] {
	f := Pending[T]()
	f.complete(v, nil)
	return f
}

// FromError creates an already-completed Future with an error.
func FromError[T any](err error) *Future[T] {
	f := Pending[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// Resolve completes the Future with v. Later completions are ignored.
func (f *Future[T]) Resolve(v T) { f.complete(v, nil) }

// Reject completes the Future with err. Later completions are ignored.
func (f *Future[T]) Reject(err error) {
	var zero T
	f.complete(zero, err)
}

// Await blocks until completion and returns the result.
func (f *Future[T]) Await() (T, error) {
	<-f.doneChannel
	return f.res.v, f.res.err
}

// AwaitTimeout waits up to d for completion.
// Returns (value, err, ok). ok=false if timed out.
func (f *Future[T]) AwaitTimeout(d time.Duration) (T, error, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-f.doneChannel:
		return f.res.v, f.res.err, true
	case <-timer.C:
		var zero T
		return zero, nil, false
	}
}

// Done returns a channel closed when the Future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.doneChannel }

// Settled reports whether the Future has completed.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.doneChannel:
		return true
	default:
		return false
	}
}

// OnComplete registers fn to run once with the result. If the Future has
// already completed fn runs immediately on the caller's goroutine, otherwise
// it runs on the goroutine that completes the Future.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.Settled() {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn(f.res.v, f.res.err)
}

// complete sets the result exactly once, closes doneChannel and fires callbacks.
func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.res = result[T]{v: v, err: err}
		close(f.doneChannel)
		callbacks := f.callbacks
		f.callbacks = nil
		f.mu.Unlock()

		for _, cb := range callbacks {
			cb(v, err)
		}
	})
}
