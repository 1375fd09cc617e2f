// Package blocks holds interpreted block implementations that compiled
// scripts reach through the compatibility layer.
package blocks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"tickvm/internal/cast"
	"tickvm/internal/object"
	"tickvm/internal/runtime"
	"tickvm/internal/store"
)

const DefaultCloudTimeout = 5 * time.Second

// Redrawer is told when a block changes something visible.
type Redrawer interface {
	RequestRedraw()
}

// CloudStore is the persistence behind cloud variables.
type CloudStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
}

type Blocks struct {
	Redraw       Redrawer
	Cloud        CloudStore
	CloudTimeout time.Duration
	// Out receives what sprites say; nil discards it.
	Out io.Writer
}

// Register installs every block on rt.
func (b *Blocks) Register(rt *runtime.Runtime) {
	rt.RegisterBlock("control_wait", b.wait)
	rt.RegisterBlock("control_yield_tick", b.yieldTick)
	rt.RegisterBlock("event_broadcast", b.broadcast)
	rt.RegisterBlock("looks_say", b.say)
	rt.RegisterBlock("cloud_get", b.cloudGet)
	rt.RegisterBlock("cloud_set", b.cloudSet)
}

func (b *Blocks) requestRedraw() {
	if b.Redraw != nil {
		b.Redraw.RequestRedraw()
	}
}

// wait yields until DURATION seconds have passed on the stack timer.
func (b *Blocks) wait(args map[string]object.Value, util *runtime.BlockUtility) object.Value {
	if util.StackTimerNeedsInit() {
		seconds := math.Max(0, cast.ToNumber(args["DURATION"]))
		util.StartStackTimer(time.Duration(seconds * float64(time.Second)))
		b.requestRedraw()
		util.Yield()
	} else if !util.StackTimerFinished() {
		util.Yield()
	}
	return nil
}

const yieldedParam = "yielded"

// yieldTick gives up the rest of the tick exactly once.
func (b *Blocks) yieldTick(_ map[string]object.Value, util *runtime.BlockUtility) object.Value {
	if _, ok := util.StackFrame.Params[yieldedParam]; !ok {
		util.StackFrame.Params[yieldedParam] = true
		util.YieldTick()
	}
	return nil
}

func (b *Blocks) broadcast(args map[string]object.Value, util *runtime.BlockUtility) object.Value {
	util.StartHats("event_whenbroadcastreceived", map[string]object.Value{
		"BROADCAST_OPTION": cast.String(args["BROADCAST_INPUT"]),
	})
	return nil
}

func (b *Blocks) say(args map[string]object.Value, util *runtime.BlockUtility) object.Value {
	name := ""
	if target := util.Target(); target != nil {
		name = target.Name()
	}
	message := cast.String(args["MESSAGE"])
	slog.Info("say",
		slog.String("target", name),
		slog.String("message", message))
	if b.Out != nil {
		fmt.Fprintf(b.Out, "%s: %s\n", name, message)
	}
	b.requestRedraw()
	return nil
}

func (b *Blocks) timeout() time.Duration {
	if b.CloudTimeout > 0 {
		return b.CloudTimeout
	}
	return DefaultCloudTimeout
}

var errNoCloud = errors.New("no cloud store configured")

// cloudGet resolves to the stored value, or 0 for a variable never set.
func (b *Blocks) cloudGet(args map[string]object.Value, _ *runtime.BlockUtility) object.Value {
	name := cast.String(args["NAME"])
	if b.Cloud == nil {
		return runtime.Rejected(errNoCloud)
	}
	return runtime.Async(func() (object.Value, error) {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout())
		defer cancel()
		value, err := b.Cloud.Get(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return 0.0, nil
		}
		if err != nil {
			return nil, err
		}
		return value, nil
	})
}

func (b *Blocks) cloudSet(args map[string]object.Value, _ *runtime.BlockUtility) object.Value {
	name := cast.String(args["NAME"])
	value := cast.String(args["VALUE"])
	if b.Cloud == nil {
		return runtime.Rejected(errNoCloud)
	}
	return runtime.Async(func() (object.Value, error) {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout())
		defer cancel()
		return nil, b.Cloud.Set(ctx, name, value)
	})
}
