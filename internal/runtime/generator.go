package runtime

import (
	"errors"
	"iter"

	"tickvm/internal/object"
)

// errStopped unwinds a parked script body when its generator is stopped.
var errStopped = errors.New("generator stopped")

// Generator is the resumable execution handle of one thread. It runs the
// script body as a coroutine: Resume hands control to the body until the
// next suspension point, then control comes straight back. Nothing runs in
// parallel.
type Generator struct {
	next  func() (struct{}, bool)
	stop  func()
	yield func(struct{}) bool

	done  bool
	value object.Value
}

func newGenerator(t *Thread, body func() object.Value) *Generator {
	g := &Generator{}
	seq := func(yield func(struct{}) bool) {
		defer func() {
			if r := recover(); r != nil && r != errStopped {
				panic(r)
			}
		}()
		g.yield = yield
		g.value = body()
		t.Status = STATUS_DONE
	}
	g.next, g.stop = iter.Pull(iter.Seq[struct{}](seq))
	return g
}

// Resume advances the body to its next suspension point or to completion.
// It reports whether the body has finished.
func (g *Generator) Resume() bool {
	if g.done {
		return true
	}
	if _, ok := g.next(); !ok {
		g.done = true
	}
	return g.done
}

// Done reports whether the body ran to completion or was stopped.
func (g *Generator) Done() bool { return g.done }

// Value is the body's result once Done.
func (g *Generator) Value() object.Value { return g.value }

func (g *Generator) Stop() {
	g.stop()
	g.done = true
}

// suspend parks the body; it must only be called from inside the body.
func (g *Generator) suspend() {
	if !g.yield(struct{}{}) {
		panic(errStopped)
	}
}
