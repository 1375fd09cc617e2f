package object

import (
	"errors"
	"testing"
)

func TestNewVariableDefaults(t *testing.T) {
	scalar, err := NewVariable("a", "score", SCALAR_TYPE, false)
	if err != nil {
		t.Fatal(err)
	}
	if scalar.Value != float64(0) {
		t.Errorf("scalar default = %#v, want 0", scalar.Value)
	}
	if scalar.List() != nil {
		t.Errorf("scalar variable returned a list")
	}

	list, err := NewVariable("b", "items", LIST_TYPE, false)
	if err != nil {
		t.Fatal(err)
	}
	if l := list.List(); l == nil || l.Len() != 0 || l.Name != "items" {
		t.Errorf("list default = %#v", list.Value)
	}

	msg, err := NewVariable("c", "go", BROADCAST_MESSAGE_TYPE, false)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Value != "go" {
		t.Errorf("broadcast default = %#v, want name", msg.Value)
	}
}

func TestNewVariableRejectsUnknownType(t *testing.T) {
	_, err := NewVariable("x", "x", "dictionary", false)
	if !errors.Is(err, ErrUnknownVariableType) {
		t.Fatalf("expected ErrUnknownVariableType, got %v", err)
	}
}

func TestListMarkStale(t *testing.T) {
	l := NewList("l", 1.0, 2.0)
	if !l.MonitorUpToDate {
		t.Fatal("new list should start up to date")
	}
	l.MarkStale()
	if l.MonitorUpToDate {
		t.Fatal("MarkStale did not clear flag")
	}
}
