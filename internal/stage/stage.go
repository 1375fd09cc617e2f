// Package stage is a small target model: sprites with positions and
// variables, a stage holding globals, the mouse and the project timer.
package stage

import (
	"fmt"
	"sort"
	"time"

	"tickvm/internal/object"
	"tickvm/internal/runtime"
)

const StageName = "Stage"

// Sprite is an execution target. The stage is a Sprite with isStage set.
type Sprite struct {
	name    string
	isStage bool
	X, Y    float64

	variables map[string]*object.Variable
	stage     *Sprite
}

func NewSprite(name string) *Sprite {
	return &Sprite{name: name, variables: map[string]*object.Variable{}}
}

func (s *Sprite) Name() string                 { return s.name }
func (s *Sprite) IsStage() bool                { return s.isStage }
func (s *Sprite) Position() (float64, float64) { return s.X, s.Y }

// DeclareVariable adds a variable with the default value for typ.
func (s *Sprite) DeclareVariable(name, typ string, isCloud bool) (*object.Variable, error) {
	id := fmt.Sprintf("%s/%s", s.name, name)
	v, err := object.NewVariable(id, name, typ, isCloud)
	if err != nil {
		return nil, fmt.Errorf("declare %s on %s: %w", name, s.name, err)
	}
	s.variables[name] = v
	return v, nil
}

// LookupVariable finds a scalar by name, falling back to the stage's globals.
func (s *Sprite) LookupVariable(name string) *object.Variable {
	return s.lookup(name, object.SCALAR_TYPE)
}

// LookupList finds a list by name, falling back to the stage's globals.
func (s *Sprite) LookupList(name string) *object.List {
	if v := s.lookup(name, object.LIST_TYPE); v != nil {
		return v.List()
	}
	return nil
}

func (s *Sprite) lookup(name, typ string) *object.Variable {
	if v, ok := s.variables[name]; ok && v.Type == typ {
		return v
	}
	if s.stage != nil && s.stage != s {
		return s.stage.lookup(name, typ)
	}
	return nil
}

// Variables returns this target's own variables sorted by name.
func (s *Sprite) Variables() []*object.Variable {
	vars := make([]*object.Variable, 0, len(s.variables))
	for _, v := range s.variables {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars
}

// World holds every target plus the mouse and timer. It implements
// runtime.World.
type World struct {
	stage   *Sprite
	sprites map[string]*Sprite
	order   []*Sprite

	mouseX, mouseY float64
	timerStart     time.Time
	clock          func() time.Time
}

func NewWorld(clock func() time.Time) *World {
	if clock == nil {
		clock = time.Now
	}
	st := NewSprite(StageName)
	st.isStage = true
	st.stage = st
	return &World{
		stage:      st,
		sprites:    map[string]*Sprite{},
		timerStart: clock(),
		clock:      clock,
	}
}

func (w *World) Stage() *Sprite { return w.stage }

// AddSprite creates a sprite at (x, y). Adding an existing name returns it.
func (w *World) AddSprite(name string, x, y float64) *Sprite {
	if s, ok := w.sprites[name]; ok {
		return s
	}
	s := NewSprite(name)
	s.X, s.Y = x, y
	s.stage = w.stage
	w.sprites[name] = s
	w.order = append(w.order, s)
	return s
}

func (w *World) Sprite(name string) (*Sprite, bool) {
	s, ok := w.sprites[name]
	return s, ok
}

// Target resolves a name to a sprite or the stage.
func (w *World) Target(name string) (*Sprite, bool) {
	if name == StageName {
		return w.stage, true
	}
	return w.Sprite(name)
}

// Targets lists the stage followed by the sprites in creation order.
func (w *World) Targets() []*Sprite {
	return append([]*Sprite{w.stage}, w.order...)
}

// TargetByName only resolves sprites; the stage is not a sprite target.
func (w *World) TargetByName(name string) (runtime.Target, bool) {
	s, ok := w.sprites[name]
	if !ok {
		return nil, false
	}
	return s, true
}

func (w *World) SetMouse(x, y float64) {
	w.mouseX, w.mouseY = x, y
}

func (w *World) MousePosition() (float64, float64) {
	return w.mouseX, w.mouseY
}

func (w *World) ResetTimer() {
	w.timerStart = w.clock()
}

func (w *World) ProjectTimer() time.Duration {
	return w.clock().Sub(w.timerStart)
}

func (w *World) Now() time.Time {
	return w.clock()
}
