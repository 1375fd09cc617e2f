package object

import (
	"errors"
	"fmt"
)

// Value is anything a script can hold: float64, string, bool, nil, *List or
// an opaque host handle (threads returned by startHats, awaitables).
type Value = any

const (
	SCALAR_TYPE            = ""
	LIST_TYPE              = "list"
	BROADCAST_MESSAGE_TYPE = "broadcast_msg"
)

var ErrUnknownVariableType = errors.New("invalid variable type")

// List is an ordered, mutable list variable. MonitorUpToDate is cleared by
// every mutation so that list monitors know to re-render.
type List struct {
	ID              string
	Name            string
	Value           []Value
	MonitorUpToDate bool
}

func NewList(name string, items ...Value) *List {
	if items == nil {
		items = []Value{}
	}
	return &List{ID: name, Name: name, Value: items, MonitorUpToDate: true}
}

func (l *List) Len() int { return len(l.Value) }

// MarkStale flags the list as changed since the last monitor update.
func (l *List) MarkStale() { l.MonitorUpToDate = false }

// Variable is a named scalar, list or broadcast message owned by a target.
type Variable struct {
	ID      string
	Name    string
	Type    string
	Value   Value
	IsCloud bool
}

// NewVariable builds a variable with the default value for its type.
// Unknown type tags are rejected.
func NewVariable(id, name, typ string, isCloud bool) (*Variable, error) {
	v := &Variable{ID: id, Name: name, Type: typ, IsCloud: isCloud}
	switch typ {
	case SCALAR_TYPE:
		v.Value = float64(0)
	case LIST_TYPE:
		v.Value = NewList(name)
	case BROADCAST_MESSAGE_TYPE:
		v.Value = name
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariableType, typ)
	}
	return v, nil
}

// List returns the variable's list value, or nil for non-list variables.
func (v *Variable) List() *List {
	if l, ok := v.Value.(*List); ok {
		return l
	}
	return nil
}
