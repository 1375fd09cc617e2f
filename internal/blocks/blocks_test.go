package blocks

import (
	"bytes"
	"context"
	"testing"
	"time"

	"tickvm/internal/object"
	"tickvm/internal/runtime"
	"tickvm/internal/sequencer"
	"tickvm/internal/stage"
	"tickvm/internal/store"
)

type env struct {
	rt    *runtime.Runtime
	seq   *sequencer.Sequencer
	world *stage.World
	cat   *stage.Sprite
	out   *bytes.Buffer
	now   time.Time
}

func newEnv(t *testing.T, cloud CloudStore) *env {
	t.Helper()
	e := &env{now: time.Unix(1000, 0), out: &bytes.Buffer{}}
	e.world = stage.NewWorld(func() time.Time { return e.now })
	e.rt = runtime.NewRuntime(nil, e.world)
	// an hour per clock read ends every tick after one pass
	tick := time.Unix(0, 0)
	e.seq = sequencer.New(e.rt, sequencer.Options{Clock: func() time.Time {
		tick = tick.Add(time.Hour)
		return tick
	}})
	(&Blocks{Redraw: e.seq, Cloud: cloud, Out: e.out}).Register(e.rt)
	e.cat = e.world.AddSprite("Cat", 0, 0)
	if _, err := e.cat.DeclareVariable("n", object.SCALAR_TYPE, false); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *env) add(t *testing.T, hat string, fields map[string]object.Value, src string) {
	t.Helper()
	unit, err := e.rt.Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	e.seq.AddScript(&sequencer.Script{ID: hat, Hat: hat, Fields: fields, Target: e.cat, Unit: unit})
}

func (e *env) n() object.Value { return e.cat.LookupVariable("n").Value }

func TestWait(t *testing.T) {
	e := newEnv(t, nil)
	e.add(t, "event_whenflagclicked", nil, `(compat "control_wait" (DURATION 0.5)) (setvar "n" 1)`)
	e.seq.StartHats("event_whenflagclicked", nil)

	for i := 0; i < 4; i++ {
		e.seq.StepThreads()
		e.now = e.now.Add(100 * time.Millisecond)
	}
	if e.n() != 0.0 {
		t.Fatalf("wait finished after 400ms")
	}
	e.now = e.now.Add(200 * time.Millisecond)
	e.seq.StepThreads()
	if e.n() != 1.0 {
		t.Errorf("wait did not finish after 600ms")
	}
}

func TestYieldTickBlock(t *testing.T) {
	e := newEnv(t, nil)
	e.add(t, "event_whenflagclicked", nil, `(warp (compat "control_yield_tick") (setvar "n" 1))`)
	e.seq.StartHats("event_whenflagclicked", nil)

	e.seq.StepThreads()
	if e.n() != 0.0 {
		t.Fatalf("yield tick did not suspend in warp mode")
	}
	e.seq.StepThreads()
	if e.n() != 1.0 {
		t.Errorf("thread did not resume")
	}
}

func TestBroadcastAndSay(t *testing.T) {
	e := newEnv(t, nil)
	e.add(t, "event_whenbroadcastreceived", map[string]object.Value{"BROADCAST_OPTION": "hello"},
		`(compat "looks_say" (MESSAGE (join "got " 42)))`)
	e.add(t, "event_whenflagclicked", nil, `(compat "event_broadcast" (BROADCAST_INPUT "HELLO"))`)
	e.seq.StartHats("event_whenflagclicked", nil)

	e.seq.StepThreads()
	if got := e.out.String(); got != "Cat: got 42\n" {
		t.Errorf("said %q", got)
	}
}

func TestCloudVariables(t *testing.T) {
	db, err := store.Open(context.Background(), "sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	e := newEnv(t, db)
	e.add(t, "event_whenflagclicked", nil, `
(setvar "n" (compat "cloud_get" (NAME "☁ hi")))
(compat "cloud_set" (NAME "☁ hi") (VALUE (add (var "n") 5)))
(setvar "n" (compat "cloud_get" (NAME "☁ hi")))`)
	e.seq.StartHats("event_whenflagclicked", nil)

	for i := 0; i < 20 && len(e.seq.Threads()) > 0; i++ {
		e.seq.StepThreads()
		waitForJobs(t, e.rt)
	}
	if e.n() != "5" {
		t.Errorf("n = %#v, want \"5\"", e.n())
	}
	got, err := db.Get(context.Background(), "☁ hi")
	if err != nil || got != "5" {
		t.Errorf("stored %q, %v", got, err)
	}
}

func TestCloudWithoutStoreResolvesToNil(t *testing.T) {
	e := newEnv(t, nil)
	e.add(t, "event_whenflagclicked", nil, `(setvar "n" (compat "cloud_get" (NAME "x")))`)
	e.seq.StartHats("event_whenflagclicked", nil)

	e.seq.StepThreads()
	e.rt.RunJobs()
	e.seq.StepThreads()
	if e.n() != nil {
		t.Errorf("n = %#v, want nil after rejection", e.n())
	}
}

// waitForJobs drains settle callbacks, giving in-flight store calls a moment.
func waitForJobs(t *testing.T, rt *runtime.Runtime) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if rt.RunJobs() > 0 {
			return
		}
		if time.Now().After(deadline) {
			return
		}
		time.Sleep(time.Millisecond)
		if !anyPromiseWait(rt) {
			return
		}
	}
}

func anyPromiseWait(rt *runtime.Runtime) bool {
	seq, ok := rt.Sequencer.(*sequencer.Sequencer)
	if !ok {
		return false
	}
	for _, t := range seq.Threads() {
		if t.Status == runtime.STATUS_PROMISE_WAIT {
			return true
		}
	}
	return false
}
