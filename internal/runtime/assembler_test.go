package runtime

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"tickvm/internal/object"
)

func TestAssembleBindsReferencedPrimitives(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "mod and listGet",
			src:  `(listGet (list "things") (mod 5 3))`,
			want: []string{"compareEqual", "isWhitespace", "listGet", "mod"},
		},
		{
			name: "names in strings and comments are not calls",
			src: `; randomInt would be nice here
(join "randomInt" "listGet")`,
			want: []string{"compareEqual", "isWhitespace"},
		},
		{
			name: "locals named like primitives are not calls",
			src:  `(let timer 1) (add timer 1)`,
			want: []string{"compareEqual", "isWhitespace"},
		},
		{
			name: "input labels are not calls",
			src:  `(compat "test_echo" (distance (tan 45)))`,
			want: []string{"compareEqual", "isWhitespace", "tan"},
		},
		{
			name: "nested calls",
			src:  `(if (compareGreaterThan (randomInt 1 10) 5) (daysSince2000) (timer))`,
			want: []string{"compareEqual", "compareGreaterThan", "daysSince2000", "isWhitespace", "randomInt", "timer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			fx.rt.RegisterBlock("test_echo", func(args map[string]object.Value, _ *BlockUtility) object.Value {
				return args["distance"]
			})
			unit, err := fx.rt.Assemble(tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if got := unit.Primitives(); !slices.Equal(got, tt.want) {
				t.Errorf("Primitives() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssembleFailures(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"unclosed form", `(do (yield)`, "unclosed '('"},
		{"unknown call", `(frobnicate 1)`, `unknown identifier "frobnicate"`},
		{"unknown local", `(add x 1)`, `unknown identifier "x"`},
		{"unknown opcode", `(compat "motion_fly")`, `no interpreted block for opcode "motion_fly"`},
		{"primitive arity", `(mod 1)`, "mod takes 2 arguments, got 1"},
		{"form arity", `(let x)`, "let takes 2 arguments, got 1"},
		{"set undeclared", `(set y 1)`, `set of undeclared local "y"`},
		{"non-literal var name", `(let n "a") (var n)`, "var expects a string literal"},
		{"bad input", `(startHats "go" 4)`, "expected (NAME value)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			unit, err := fx.rt.Assemble(tt.src)
			if unit != nil {
				t.Fatalf("expected no unit")
			}
			if !errors.Is(err, ErrAssembly) {
				t.Fatalf("expected ErrAssembly, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err, tt.message)
			}
			if len(fx.logs.errors) != 1 {
				t.Fatalf("expected one error log, got %v", fx.logs.errors)
			}
			if !strings.Contains(fx.logs.errors[0], tt.src) {
				t.Errorf("error log does not contain the source:\n%s", fx.logs.errors[0])
			}
		})
	}
}

func TestUnitStartsFreshActivations(t *testing.T) {
	fx := newFixture()
	unit, err := fx.rt.Assemble(`(let n 0) (set n (add n 1)) (yield) (return n)`)
	if err != nil {
		t.Fatal(err)
	}

	a := NewThread(fx.target, "a")
	b := NewThread(fx.target, "b")
	unit.Start(a)
	unit.Start(b)
	for range 2 {
		fx.rt.Execute(a)
		fx.rt.Execute(b)
	}
	if a.Generator().Value() != 1.0 || b.Generator().Value() != 1.0 {
		t.Errorf("activations shared locals: a=%v b=%v", a.Generator().Value(), b.Generator().Value())
	}
}
