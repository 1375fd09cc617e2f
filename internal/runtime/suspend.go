package runtime

import (
	"time"

	"tickvm/internal/object"
)

const (
	stuckCheckInterval = 100
	stuckThreshold     = 500 * time.Millisecond
)

// BlockFunc is an interpreted block implementation. It may return an
// Awaitable to make the calling script wait for it, or set the thread status
// to STATUS_YIELD / STATUS_YIELD_TICK to be called again later.
type BlockFunc func(args map[string]object.Value, util *BlockUtility) object.Value

// BlockUtility is the bridge handed to interpreted blocks.
type BlockUtility struct {
	Thread     *Thread
	Runtime    *Runtime
	StackFrame *StackFrame
}

func (u *BlockUtility) Target() Target { return u.Thread.Target }

func (u *BlockUtility) Yield() { u.Thread.Status = STATUS_YIELD }

func (u *BlockUtility) YieldTick() { u.Thread.Status = STATUS_YIELD_TICK }

func (u *BlockUtility) Now() time.Time { return u.Runtime.now() }

func (u *BlockUtility) StackTimerNeedsInit() bool {
	return u.StackFrame.Timer == nil
}

func (u *BlockUtility) StartStackTimer(d time.Duration) {
	u.StackFrame.Timer = &StackTimer{Start: u.Now(), Duration: d}
}

func (u *BlockUtility) StackTimerFinished() bool {
	return u.StackFrame.Timer.Finished(u.Now())
}

func (u *BlockUtility) StartHats(event string, fields map[string]object.Value) []*Thread {
	if u.Runtime.Sequencer == nil {
		return nil
	}
	return u.Runtime.Sequencer.StartHats(event, fields)
}

// RegisterBlock makes an interpreted block callable through the
// compatibility layer. Registering an opcode twice replaces it.
func (r *Runtime) RegisterBlock(opcode string, fn BlockFunc) {
	r.blocks[opcode] = fn
}

func (r *Runtime) LookupBlock(opcode string) (BlockFunc, bool) {
	fn, ok := r.blocks[opcode]
	return fn, ok
}

// AwaitPromise parks the current thread in STATUS_PROMISE_WAIT until a
// settles. The thread is made runnable again by the settle job, not by
// polling. A rejection is logged and resolves to nil.
func AwaitPromise(ctx *Context, a Awaitable) object.Value {
	thread := ctx.Thread
	r := ctx.Runtime

	var result object.Value
	thread.Status = STATUS_PROMISE_WAIT
	a.OnSettle(func(v object.Value, err error) {
		r.post(func() {
			if err != nil {
				r.Log.Warnf("promise rejected in compiled script: %v", err)
				result = nil
			} else {
				result = v
			}
			thread.Status = STATUS_RUNNING
		})
	})
	thread.generator.suspend()
	return result
}

// RunCompatibility calls an interpreted block on behalf of the current
// thread, suspending while the block asks to yield or waits on an Awaitable.
func RunCompatibility(ctx *Context, inputs map[string]object.Value, fn BlockFunc, track bool) object.Value {
	thread := ctx.Thread
	if track {
		thread.ResumedFromPromise = false
	}
	thread.StackFrame.Reset()
	util := &BlockUtility{Thread: thread, Runtime: ctx.Runtime, StackFrame: thread.StackFrame}

	await := func(a Awaitable) object.Value {
		v := AwaitPromise(ctx, a)
		if track {
			thread.ResumedFromPromise = true
		}
		return v
	}

	value := fn(inputs, util)
	if a, ok := value.(Awaitable); ok {
		return await(a)
	}

	for thread.Status == STATUS_YIELD || thread.Status == STATUS_YIELD_TICK {
		if thread.Status == STATUS_YIELD {
			thread.Status = STATUS_RUNNING
			if thread.Warp == 0 || IsStuck(ctx) {
				thread.generator.suspend()
			}
		} else {
			thread.generator.suspend()
		}

		value = fn(inputs, util)
		if a, ok := value.(Awaitable); ok {
			return await(a)
		}
	}
	return value
}

// IsStuck reports whether the current scheduling pass has run too long.
// The clock is only consulted on every hundredth call.
func IsStuck(ctx *Context) bool {
	r := ctx.Runtime
	r.stuckCounter++
	if r.stuckCounter < stuckCheckInterval {
		return false
	}
	r.stuckCounter = 0
	if r.Sequencer == nil {
		return false
	}
	return r.Sequencer.TimeElapsed() > stuckThreshold
}
