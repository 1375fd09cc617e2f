package cast

import (
	"math"
	"testing"

	"tickvm/internal/object"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		in   object.Value
		want float64
	}{
		{"", 0},
		{"   ", 0},
		{" 12 ", 12},
		{"1e3", 1000},
		{"-.5", -0.5},
		{"5.", 5},
		{"0x10", 16},
		{"0b101", 5},
		{"0o17", 15},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{true, 1},
		{false, 0},
		{nil, 0},
		{3.25, 3.25},
		{object.NewList("l", 7.0), 7},
		{object.NewList("l"), 0},
	}

	for _, tt := range tests {
		if got := Number(tt.in); got != tt.want {
			t.Errorf("Number(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNumberNaN(t *testing.T) {
	for _, in := range []object.Value{"abc", "1a", "inf", "nan", "0x", "-0x10", "1_000", "0x1p3", object.NewList("l", 1.0, 2.0)} {
		if got := Number(in); !math.IsNaN(got) {
			t.Errorf("Number(%#v) = %v, want NaN", in, got)
		}
		if got := ToNumber(in); got != 0 {
			t.Errorf("ToNumber(%#v) = %v, want 0", in, got)
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   object.Value
		want string
	}{
		{1.0, "1"},
		{-0.0, "0"},
		{0.1 + 0.2, "0.30000000000000004"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{123456789012.0, "123456789012"},
		{math.NaN(), "NaN"},
		{math.Inf(-1), "-Infinity"},
		{true, "true"},
		{nil, "null"},
		{"x", "x"},
		{object.NewList("l", 1.0, nil, "a"), "1,,a"},
	}

	for _, tt := range tests {
		if got := String(tt.in); got != tt.want {
			t.Errorf("String(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInt32(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{3.9, 3},
		{-3.9, -3},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{4294967297, 1},
		{2147483648, -2147483648},
	}

	for _, tt := range tests {
		if got := Int32(tt.in); got != tt.want {
			t.Errorf("Int32(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLength(t *testing.T) {
	if Length("a") != 1 || Length("é") != 1 || Length("😀") != 2 || Length("") != 0 {
		t.Error("Length does not count UTF-16 code units")
	}
}

func TestToRGBList(t *testing.T) {
	tests := []struct {
		in   object.Value
		want []float64
	}{
		{"#ff8000", []float64{255, 128, 0}},
		{"#F80", []float64{255, 136, 0}},
		{"#nothex", []float64{0, 0, 0}},
		{float64(0x123456), []float64{0x12, 0x34, 0x56}},
		{"16711680", []float64{255, 0, 0}},
		{"garbage", []float64{0, 0, 0}},
	}

	for _, tt := range tests {
		got := ToRGBList(tt.in)
		if len(got) != 3 || got[0] != tt.want[0] || got[1] != tt.want[1] || got[2] != tt.want[2] {
			t.Errorf("ToRGBList(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
