package runtime

import (
	"tickvm/internal/object"
	"tickvm/internal/util/future"
)

// Awaitable is the explicit result of any operation that may suspend a
// script until it settles. OnSettle may call fn on any goroutine, and may
// call it immediately if already settled.
type Awaitable interface {
	OnSettle(fn func(object.Value, error))
}

type futureAwaitable struct {
	f *future.Future[object.Value]
}

func (a futureAwaitable) OnSettle(fn func(object.Value, error)) {
	a.f.OnComplete(fn)
}

// FromFuture adapts a future to an Awaitable.
func FromFuture(f *future.Future[object.Value]) Awaitable {
	return futureAwaitable{f: f}
}

// Async runs fn on its own goroutine and returns an Awaitable for its result.
func Async(fn func() (object.Value, error)) Awaitable {
	return FromFuture(future.New(fn))
}

func Resolved(v object.Value) Awaitable {
	return FromFuture(future.FromValue(v))
}

func Rejected(err error) Awaitable {
	return FromFuture(future.FromError[object.Value](err))
}
