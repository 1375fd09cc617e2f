package runtime

import (
	"time"

	"github.com/google/uuid"
	"tickvm/internal/object"
)

type Status int

const (
	STATUS_RUNNING Status = iota
	STATUS_PROMISE_WAIT
	STATUS_YIELD
	STATUS_YIELD_TICK
	STATUS_DONE
)

func (s Status) String() string {
	switch s {
	case STATUS_RUNNING:
		return "RUNNING"
	case STATUS_PROMISE_WAIT:
		return "PROMISE_WAIT"
	case STATUS_YIELD:
		return "YIELD"
	case STATUS_YIELD_TICK:
		return "YIELD_TICK"
	case STATUS_DONE:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// StackFrame is the reusable call-frame area handed to interpreted blocks.
type StackFrame struct {
	Timer  *StackTimer
	Params map[string]object.Value
}

func (f *StackFrame) Reset() {
	f.Timer = nil
	clear(f.Params)
}

// StackTimer tracks a block-local deadline, e.g. for "wait (n) seconds".
type StackTimer struct {
	Start    time.Time
	Duration time.Duration
}

func (s *StackTimer) Finished(now time.Time) bool {
	return now.Sub(s.Start) >= s.Duration
}

// Thread is one running or suspended activation of a compiled script.
// The scheduler owns it; the runtime reads and writes Status and drives the
// generator.
type Thread struct {
	ID         string
	Status     Status
	Target     Target
	Warp       int
	TopBlock   string
	StackFrame *StackFrame

	// ResumedFromPromise is set by tracked compatibility calls that had to
	// wait on an Awaitable.
	ResumedFromPromise bool

	generator *Generator
}

func NewThread(target Target, topBlock string) *Thread {
	return &Thread{
		ID:         uuid.NewString(),
		Status:     STATUS_RUNNING,
		Target:     target,
		TopBlock:   topBlock,
		StackFrame: &StackFrame{Params: map[string]object.Value{}},
	}
}

// Generator returns the thread's resumable handle, or nil before Start.
func (t *Thread) Generator() *Generator {
	return t.generator
}

// Dispose releases a parked generator. It must not be called from inside
// the thread's own step.
func (t *Thread) Dispose() {
	if t.generator != nil {
		t.generator.Stop()
	}
	t.Status = STATUS_DONE
}
