package util

import (
	"strings"
	"testing"
)

func TestGetLineAndColumn(t *testing.T) {
	src := "(let x 1)\n(set y 2)"
	tests := []struct {
		pos        int
		line, col int
	}{
		{0, 1, 1},
		{5, 1, 6},
		{10, 2, 1},
		{15, 2, 6},
		{999, 2, 10},
	}
	for _, tt := range tests {
		line, col := GetLineAndColumn(src, tt.pos)
		if line != tt.line || col != tt.col {
			t.Errorf("GetLineAndColumn(%d) = %d:%d, want %d:%d", tt.pos, line, col, tt.line, tt.col)
		}
	}
}

func TestGetContextLines(t *testing.T) {
	src := "(do\n  (let x 1)\n  (set y 2))"
	out := GetContextLines(src, 3, 8)

	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[2], "  >    3 | ") {
		t.Errorf("error line not marked: %q", lines[2])
	}
	caret := strings.Index(lines[3], "^")
	if caret != len("  >    3 | ")+7 {
		t.Errorf("caret at %d:\n%s", caret, out)
	}
}

func TestGetContextLinesClampsColumn(t *testing.T) {
	out := GetContextLines("(x)", 1, 50)
	if !strings.HasSuffix(out, "^ here") {
		t.Errorf("unexpected output %q", out)
	}
}
