package runtime

import (
	"math"

	"tickvm/internal/cast"
	"tickvm/internal/object"
)

// noTarget is what distance reports when there is nothing to measure to.
const noTarget = 10000

const mouseMenu = "_mouse_"

// AddonFunc is an externally registered block handler.
type AddonFunc func(args []object.Value, util *AddonUtil)

// AddonUtil is the minimal view of the calling thread given to addons.
type AddonUtil struct {
	blockID string
	Target  Target
}

// PeekStack returns the id of the block that called the addon.
func (u *AddonUtil) PeekStack() string { return u.blockID }

func (r *Runtime) RegisterAddon(id string, fn AddonFunc) {
	r.addons[id] = fn
}

// StartHats asks the sequencer to start every hat matching event and fields.
func StartHats(ctx *Context, event string, fields map[string]object.Value) []*Thread {
	if ctx.Runtime.Sequencer == nil {
		return nil
	}
	return ctx.Runtime.Sequencer.StartHats(event, fields)
}

// WaitAllThreads suspends until none of threads is active. When every
// remaining thread is parked on something, the current thread skips to the
// next tick instead of spinning.
func WaitAllThreads(ctx *Context, threads []*Thread) {
	seq := ctx.Runtime.Sequencer
	for {
		anyActive := false
		allWaiting := true
		for _, t := range threads {
			if seq.IsActive(t) {
				anyActive = true
				if !seq.IsWaiting(t) {
					allWaiting = false
				}
			}
		}
		if !anyActive {
			return
		}
		thread := ctx.Thread
		if allWaiting {
			thread.Status = STATUS_YIELD_TICK
		}
		thread.generator.suspend()
	}
}

// Retire asks the sequencer to drop the current thread. Suspended state is
// not unwound here.
func Retire(ctx *Context) {
	thread := ctx.Thread
	if ctx.Runtime.Sequencer != nil {
		ctx.Runtime.Sequencer.RetireThread(thread)
	} else {
		thread.Status = STATUS_DONE
	}
}

// CallAddonBlock invokes the addon registered under id, if any, and
// suspends once if the addon left the thread waiting on a promise.
func CallAddonBlock(ctx *Context, id, blockID string, args []object.Value) {
	thread := ctx.Thread
	fn, ok := ctx.Runtime.addons[id]
	if !ok {
		return
	}
	fn(args, &AddonUtil{blockID: blockID, Target: thread.Target})
	if thread.Status == STATUS_PROMISE_WAIT {
		thread.generator.suspend()
	}
}

// Distance from the current target to the sprite named by menu, or to the
// mouse pointer for "_mouse_".
func Distance(ctx *Context, menu object.Value) float64 {
	target := ctx.Thread.Target
	if target == nil || target.IsStage() {
		return noTarget
	}
	world := ctx.Runtime.World
	if world == nil {
		return noTarget
	}

	var x, y float64
	if name := cast.String(menu); name == mouseMenu {
		x, y = world.MousePosition()
	} else {
		other, ok := world.TargetByName(name)
		if !ok || other.IsStage() {
			return noTarget
		}
		x, y = other.Position()
	}
	tx, ty := target.Position()
	return math.Hypot(tx-x, ty-y)
}
