// Package sequencer is the frame-budgeted scheduler that owns threads and
// steps them through the runtime once per tick.
package sequencer

import (
	"log/slog"
	"strings"
	"time"

	"tickvm/internal/cast"
	"tickvm/internal/object"
	"tickvm/internal/runtime"
)

const (
	DefaultFrameRate = 30
	// share of a frame the sequencer may spend stepping threads
	workFraction = 0.75
)

// Hats that restart a thread already running their script instead of
// leaving it alone.
var restartingHats = map[string]bool{
	"event_whenflagclicked":       true,
	"event_whenbroadcastreceived": true,
	"event_whenthisspriteclicked": true,
}

// Script is a compiled script registered under a hat.
type Script struct {
	ID     string
	Hat    string
	Fields map[string]object.Value
	Target runtime.Target
	Unit   *runtime.Unit
}

type Options struct {
	FrameRate int
	// Turbo keeps stepping after a redraw request until the work budget runs out.
	Turbo bool
	Clock func() time.Time
}

type Sequencer struct {
	rt      *runtime.Runtime
	scripts []*Script
	threads []*runtime.Thread
	byID    map[*runtime.Thread]*Script

	workTime        time.Duration
	turbo           bool
	clock           func() time.Time
	passStart       time.Time
	redrawRequested bool
	ticks           int
}

// New creates a sequencer and installs it as rt's scheduler.
func New(rt *runtime.Runtime, opts Options) *Sequencer {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	frame := time.Second / time.Duration(opts.FrameRate)
	s := &Sequencer{
		rt:       rt,
		byID:     map[*runtime.Thread]*Script{},
		workTime: time.Duration(float64(frame) * workFraction),
		turbo:    opts.Turbo,
		clock:    opts.Clock,
	}
	s.passStart = s.clock()
	rt.Sequencer = s
	return s
}

// AddScript registers a compiled script under its hat.
func (s *Sequencer) AddScript(script *Script) {
	s.scripts = append(s.scripts, script)
}

// Threads returns the threads that are currently scheduled.
func (s *Sequencer) Threads() []*runtime.Thread {
	return s.threads
}

func (s *Sequencer) Ticks() int {
	return s.ticks
}

// RequestRedraw ends the current tick early unless in turbo mode.
func (s *Sequencer) RequestRedraw() {
	s.redrawRequested = true
}

// StartHats starts a thread for every script whose hat is event and whose
// fields match, compared case-insensitively.
func (s *Sequencer) StartHats(event string, fields map[string]object.Value) []*runtime.Thread {
	var started []*runtime.Thread
	for _, script := range s.scripts {
		if script.Hat != event || !fieldsMatch(script.Fields, fields) {
			continue
		}
		if existing := s.running(script); existing != nil {
			if !restartingHats[event] {
				continue
			}
			s.RetireThread(existing)
		}
		started = append(started, s.startScript(script))
	}
	if len(started) > 0 {
		slog.Debug("started hats",
			slog.String("event", event),
			slog.Int("threads", len(started)))
	}
	return started
}

func fieldsMatch(want, got map[string]object.Value) bool {
	for name, value := range want {
		if !strings.EqualFold(cast.String(value), cast.String(got[name])) {
			return false
		}
	}
	return true
}

func (s *Sequencer) running(script *Script) *runtime.Thread {
	for _, t := range s.threads {
		if s.byID[t] == script && t.Status != runtime.STATUS_DONE {
			return t
		}
	}
	return nil
}

func (s *Sequencer) startScript(script *Script) *runtime.Thread {
	t := runtime.NewThread(script.Target, script.ID)
	script.Unit.Start(t)
	s.threads = append(s.threads, t)
	s.byID[t] = script
	return t
}

func (s *Sequencer) IsActive(t *runtime.Thread) bool {
	if t.Status == runtime.STATUS_DONE {
		return false
	}
	for _, active := range s.threads {
		if active == t {
			return true
		}
	}
	return false
}

// IsWaiting reports threads parked on something other than their own work.
func (s *Sequencer) IsWaiting(t *runtime.Thread) bool {
	return t.Status == runtime.STATUS_PROMISE_WAIT || t.Status == runtime.STATUS_YIELD_TICK
}

// RetireThread marks t done; it is removed and disposed at the end of the tick.
func (s *Sequencer) RetireThread(t *runtime.Thread) {
	t.Status = runtime.STATUS_DONE
}

func (s *Sequencer) TimeElapsed() time.Duration {
	return s.clock().Sub(s.passStart)
}

// StepThreads runs one tick: every runnable thread is stepped, repeatedly,
// until none is left running, the work budget is spent, or a redraw was
// requested outside turbo mode. Finished threads are then removed.
func (s *Sequencer) StepThreads() {
	s.passStart = s.clock()
	s.redrawRequested = false
	s.ticks++

	for _, t := range s.threads {
		if t.Status == runtime.STATUS_YIELD_TICK {
			t.Status = runtime.STATUS_RUNNING
		}
	}

	for {
		numActive := 0
		// threads started during the pass are stepped in the same pass
		for i := 0; i < len(s.threads); i++ {
			t := s.threads[i]
			if t.Status == runtime.STATUS_RUNNING || t.Status == runtime.STATUS_YIELD {
				s.rt.Execute(t)
			}
			if t.Status == runtime.STATUS_RUNNING {
				numActive++
			}
		}
		if numActive == 0 || s.TimeElapsed() >= s.workTime || (s.redrawRequested && !s.turbo) {
			break
		}
	}

	s.sweep()
}

// sweep disposes finished threads outside of any step.
func (s *Sequencer) sweep() {
	kept := s.threads[:0]
	for _, t := range s.threads {
		if t.Status == runtime.STATUS_DONE {
			t.Dispose()
			delete(s.byID, t)
			continue
		}
		kept = append(kept, t)
	}
	clear(s.threads[len(kept):])
	s.threads = kept
}

// StopAll disposes every thread.
func (s *Sequencer) StopAll() {
	for _, t := range s.threads {
		t.Status = runtime.STATUS_DONE
	}
	s.sweep()
}
