package runtime

import (
	"fmt"
	"math"
	"testing"
	"time"

	"tickvm/internal/object"
	"tickvm/internal/util/future"
)

func TestIsStuckChecksClockEveryHundredCalls(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"over budget", 600 * time.Millisecond, true},
		{"at budget", 500 * time.Millisecond, false},
		{"under budget", 10 * time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			fx.seq.elapsed = tt.elapsed
			ctx := fx.rt.Context()

			for i := 1; i <= 99; i++ {
				if IsStuck(ctx) {
					t.Fatalf("call %d reported stuck", i)
				}
			}
			if fx.seq.elapsedCalls != 0 {
				t.Fatalf("clock read %d times before the 100th call", fx.seq.elapsedCalls)
			}
			if got := IsStuck(ctx); got != tt.want {
				t.Errorf("100th call = %v, want %v", got, tt.want)
			}
			if fx.seq.elapsedCalls != 1 {
				t.Errorf("clock read %d times on the 100th call", fx.seq.elapsedCalls)
			}

			// the counter starts over
			for i := 1; i <= 99; i++ {
				if IsStuck(ctx) {
					t.Fatalf("call %d after reset reported stuck", i)
				}
			}
			if fx.seq.elapsedCalls != 1 {
				t.Errorf("clock read again before the next hundredth call")
			}
		})
	}
}

// yieldingBlock sets STATUS_YIELD on its first n calls, then returns done.
func yieldingBlock(n int, calls *int, status Status) BlockFunc {
	return func(_ map[string]object.Value, util *BlockUtility) object.Value {
		*calls++
		if *calls <= n {
			util.Thread.Status = status
			return nil
		}
		return "done"
	}
}

func TestRunCompatibilityYield(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		warp    bool
		elapsed time.Duration
		steps   int
	}{
		{"yield suspends outside warp", STATUS_YIELD, false, 0, 3},
		{"yield skipped in warp", STATUS_YIELD, true, 0, 1},
		{"yield tick always suspends", STATUS_YIELD_TICK, true, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			fx.seq.elapsed = tt.elapsed
			calls := 0
			fx.rt.RegisterBlock("test_block", yieldingBlock(2, &calls, tt.status))
			src := `(return (compat "test_block"))`
			if tt.warp {
				src = `(warp (return (compat "test_block")))`
			}
			thread := fx.start(t, src)

			if got := fx.steps(t, thread, 10); got != tt.steps {
				t.Errorf("took %d steps, want %d", got, tt.steps)
			}
			if calls != 3 {
				t.Errorf("block called %d times, want 3", calls)
			}
			if v := thread.Generator().Value(); v != "done" {
				t.Errorf("value = %v", v)
			}
		})
	}
}

func TestRunCompatibilityAwaitsAfterYield(t *testing.T) {
	for _, tracked := range []bool{false, true} {
		t.Run(fmt.Sprintf("tracked=%v", tracked), func(t *testing.T) {
			fx := newFixture()
			pending := future.Pending[object.Value]()
			calls := 0
			fx.rt.RegisterBlock("test_block", func(_ map[string]object.Value, util *BlockUtility) object.Value {
				calls++
				if calls == 1 {
					util.Thread.Status = STATUS_YIELD
					return nil
				}
				return FromFuture(pending)
			})
			head := "compat"
			if tracked {
				head = "compatTracked"
			}
			thread := fx.start(t, `(let v (`+head+` "test_block")) (return (join v " " (resumed)))`)

			fx.rt.Execute(thread)
			if thread.Generator().Done() || thread.Status != STATUS_RUNNING {
				t.Fatalf("after yield: done=%v status=%s", thread.Generator().Done(), thread.Status)
			}
			if calls != 1 {
				t.Fatalf("block called %d times before resuming", calls)
			}

			fx.rt.Execute(thread)
			if calls != 2 {
				t.Fatalf("block called %d times, want 2", calls)
			}
			if thread.Status != STATUS_PROMISE_WAIT {
				t.Fatalf("status = %s, want PROMISE_WAIT", thread.Status)
			}

			pending.Resolve("value")
			fx.rt.RunJobs()
			if thread.Status != STATUS_RUNNING {
				t.Fatalf("status = %s after settle, want RUNNING", thread.Status)
			}
			fx.rt.Execute(thread)
			if !thread.Generator().Done() {
				t.Fatal("script did not finish after the awaitable settled")
			}
			want := fmt.Sprintf("value %v", tracked)
			if got := thread.Generator().Value(); got != want {
				t.Errorf("value = %q, want %q", got, want)
			}
		})
	}
}

func TestRunCompatibilityYieldInWarpWhenStuck(t *testing.T) {
	fx := newFixture()
	fx.seq.elapsed = time.Second
	fx.rt.stuckCounter = stuckCheckInterval - 1
	calls := 0
	fx.rt.RegisterBlock("test_block", yieldingBlock(1, &calls, STATUS_YIELD))
	thread := fx.start(t, `(warp (compat "test_block"))`)

	fx.rt.Execute(thread)
	if thread.Generator().Done() {
		t.Fatal("stuck warp thread did not suspend")
	}
	if thread.Status != STATUS_RUNNING {
		t.Errorf("status = %s, want RUNNING", thread.Status)
	}
}

func TestRunCompatibilityStackTimer(t *testing.T) {
	fx := newFixture()
	fx.rt.RegisterBlock("test_wait", func(args map[string]object.Value, util *BlockUtility) object.Value {
		if util.StackTimerNeedsInit() {
			util.StartStackTimer(time.Duration(args["MS"].(float64)) * time.Millisecond)
			util.Yield()
		} else if !util.StackTimerFinished() {
			util.Yield()
		}
		return nil
	})
	thread := fx.start(t, `(compat "test_wait" (MS 100))`)

	for i := 0; i < 3; i++ {
		fx.rt.Execute(thread)
		fx.world.now = fx.world.now.Add(40 * time.Millisecond)
	}
	if thread.Generator().Done() {
		t.Fatal("wait finished early")
	}
	fx.rt.Execute(thread)
	if !thread.Generator().Done() {
		t.Fatal("wait did not finish after its duration")
	}
}

func TestWaitAllThreads(t *testing.T) {
	t.Run("nothing active returns without suspending", func(t *testing.T) {
		fx := newFixture()
		fx.seq.hats = []*Thread{NewThread(fx.target, "t1"), NewThread(fx.target, "t2")}
		thread := fx.start(t, `(waitAll (startHats "event_whenbroadcastreceived" (BROADCAST_OPTION "go"))) (return 1)`)

		fx.rt.Execute(thread)
		if !thread.Generator().Done() {
			t.Fatal("waitAll suspended with no active threads")
		}
		if len(fx.seq.hatEvents) != 1 || fx.seq.hatEvents[0] != "event_whenbroadcastreceived" {
			t.Errorf("hats started = %v", fx.seq.hatEvents)
		}
	})

	t.Run("waits for active threads", func(t *testing.T) {
		fx := newFixture()
		t1, t2 := NewThread(fx.target, "t1"), NewThread(fx.target, "t2")
		fx.seq.hats = []*Thread{t1, t2}
		fx.seq.active[t1] = true
		fx.seq.active[t2] = true
		fx.seq.waiting[t1] = true
		thread := fx.start(t, `(waitAll (startHats "go"))`)

		fx.rt.Execute(thread)
		if thread.Generator().Done() || thread.Status != STATUS_RUNNING {
			t.Fatalf("expected a plain suspension, status %s", thread.Status)
		}

		fx.seq.waiting[t2] = true
		fx.rt.Execute(thread)
		if thread.Status != STATUS_YIELD_TICK {
			t.Fatalf("all waiting: status = %s, want YIELD_TICK", thread.Status)
		}

		delete(fx.seq.active, t1)
		delete(fx.seq.active, t2)
		thread.Status = STATUS_RUNNING
		fx.rt.Execute(thread)
		if !thread.Generator().Done() {
			t.Fatal("waitAll did not finish once threads left the active set")
		}
	})
}

func TestRetireForm(t *testing.T) {
	fx := newFixture()
	thread := fx.start(t, `(retire) (yield)`)
	fx.rt.Execute(thread)
	if len(fx.seq.retired) != 1 || thread.Status != STATUS_DONE {
		t.Errorf("retire did not reach the sequencer")
	}
}

func TestCallAddonBlock(t *testing.T) {
	fx := newFixture()
	var seenBlock string
	var seenTarget Target
	var seenArgs []object.Value
	fx.rt.RegisterAddon("test_addon", func(args []object.Value, util *AddonUtil) {
		seenBlock = util.PeekStack()
		seenTarget = util.Target
		seenArgs = args
	})
	fx.rt.RegisterAddon("test_async", func(_ []object.Value, util *AddonUtil) {
		fx.rt.Context().Thread.Status = STATUS_PROMISE_WAIT
	})

	thread := fx.start(t, `(addon "test_addon" "block-7" 1 "two") (addon "missing" "x") (return 1)`)
	fx.rt.Execute(thread)
	if !thread.Generator().Done() {
		t.Fatal("synchronous addon suspended")
	}
	if seenBlock != "block-7" || seenTarget != Target(fx.target) {
		t.Errorf("shim = %q %v", seenBlock, seenTarget)
	}
	if len(seenArgs) != 2 || seenArgs[0] != 1.0 || seenArgs[1] != "two" {
		t.Errorf("args = %v", seenArgs)
	}

	thread = fx.start(t, `(addon "test_async" "b") (return 2)`)
	fx.rt.Execute(thread)
	if thread.Generator().Done() {
		t.Fatal("addon leaving PROMISE_WAIT did not suspend")
	}
	thread.Status = STATUS_RUNNING
	fx.rt.Execute(thread)
	if !thread.Generator().Done() {
		t.Fatal("addon suspended more than once")
	}
}

func TestDistance(t *testing.T) {
	fx := newFixture()
	fx.target.x, fx.target.y = 3, 4
	other := newTestTarget("Other")
	other.x, other.y = 6, 8
	stage := newTestTarget("Stage")
	stage.stage = true
	fx.world.targets["Other"] = other
	fx.world.targets["Stage"] = stage
	fx.world.mouseX, fx.world.mouseY = 0, 0

	tests := []struct {
		name   string
		from   *testTarget
		menu   object.Value
		expect float64
	}{
		{"sprite", fx.target, "Other", 5},
		{"mouse", fx.target, "_mouse_", 5},
		{"unknown sprite", fx.target, "Nobody", 10000},
		{"stage as menu", fx.target, "Stage", 10000},
		{"from stage", stage, "Other", 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := fx.rt.Context()
			ctx.Thread = NewThread(tt.from, "distance")
			if got := Distance(ctx, tt.menu); math.Abs(got-tt.expect) > 1e-9 {
				t.Errorf("Distance(%v) = %v, want %v", tt.menu, got, tt.expect)
			}
		})
	}
}

func TestTimeBasedPrimitives(t *testing.T) {
	fx := newFixture()
	fx.world.timer = 1500 * time.Millisecond
	fx.world.now = time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)

	got, err := fx.rt.Evaluate(`(timer)`, fx.target)
	if err != nil || got != 1.5 {
		t.Errorf("timer = %v, %v", got, err)
	}
	got, err = fx.rt.Evaluate(`(daysSince2000)`, fx.target)
	if err != nil || got != 1.0 {
		t.Errorf("daysSince2000 = %v, %v", got, err)
	}
}
