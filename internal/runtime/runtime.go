package runtime

import (
	"sync"
	"time"

	"tickvm/internal/logger"
	"tickvm/internal/object"
)

var log = logger.NewLogger("runtime", logger.SystemLogLevel())

// Sequencer is the scheduler that owns threads and decides what runs each tick.
type Sequencer interface {
	StartHats(event string, fields map[string]object.Value) []*Thread
	IsActive(t *Thread) bool
	IsWaiting(t *Thread) bool
	RetireThread(t *Thread)
	// TimeElapsed is the time spent in the current scheduling pass.
	TimeElapsed() time.Duration
}

// Target is an execution target: a sprite or the stage.
type Target interface {
	Name() string
	IsStage() bool
	Position() (x, y float64)
	LookupVariable(name string) *object.Variable
	LookupList(name string) *object.List
}

type World interface {
	TargetByName(name string) (Target, bool)
	MousePosition() (x, y float64)
	ProjectTimer() time.Duration
	Now() time.Time
}

type Logger interface {
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Context is the single mutable execution slot shared by every script the
// runtime runs. Thread is the thread most recently passed to Execute.
type Context struct {
	Thread  *Thread
	Runtime *Runtime
}

type Runtime struct {
	Sequencer Sequencer
	World     World
	Log       Logger

	ctx    *Context
	blocks map[string]BlockFunc
	addons map[string]AddonFunc

	stuckCounter int

	jobsMu sync.Mutex
	jobs   []func()
}

func NewRuntime(seq Sequencer, world World) *Runtime {
	r := &Runtime{
		Sequencer: seq,
		World:     world,
		Log:       log,
		blocks:    map[string]BlockFunc{},
		addons:    map[string]AddonFunc{},
	}
	r.ctx = &Context{Runtime: r}
	return r
}

// Context returns the shared execution context.
func (r *Runtime) Context() *Context {
	return r.ctx
}

// Execute advances thread by exactly one suspension point. It does not look
// at what the step produced; the scheduler reads thread.Status afterwards.
func (r *Runtime) Execute(thread *Thread) {
	r.ctx.Thread = thread
	if thread.generator == nil {
		return
	}
	thread.generator.Resume()
}

// post queues fn to run on the host loop; it is safe to call from any goroutine.
func (r *Runtime) post(fn func()) {
	r.jobsMu.Lock()
	r.jobs = append(r.jobs, fn)
	r.jobsMu.Unlock()
}

// RunJobs runs queued settle callbacks in order and returns how many ran.
// The host calls it between ticks.
func (r *Runtime) RunJobs() int {
	n := 0
	for {
		r.jobsMu.Lock()
		jobs := r.jobs
		r.jobs = nil
		r.jobsMu.Unlock()
		if len(jobs) == 0 {
			return n
		}
		for _, job := range jobs {
			job()
			n++
		}
	}
}

// PendingJobs reports whether settle callbacks are waiting to run.
func (r *Runtime) PendingJobs() bool {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	return len(r.jobs) > 0
}

func (r *Runtime) now() time.Time {
	if r.World != nil {
		return r.World.Now()
	}
	return time.Now()
}
