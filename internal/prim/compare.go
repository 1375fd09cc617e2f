// Package prim holds the primitive operations compiled scripts call: casts,
// loose comparison, 1-indexed list access, randomness, timing and maths with
// the exact legacy semantics scripts depend on. Nothing here suspends.
package prim

import (
	"math"
	"reflect"
	"slices"
	"strings"
	"unicode/utf16"

	"tickvm/internal/cast"
	"tickvm/internal/object"
)

// ToBoolean: "", "0" and any casing of "false" are false; other strings are
// true; everything else uses truthiness.
func ToBoolean(v object.Value) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return !(x == "" || x == "0" || strings.EqualFold(x, "false"))
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case nil:
		return false
	default:
		return true
	}
}

// IsWhitespace is true for nil and for strings that trim to nothing.
func IsWhitespace(v object.Value) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimFunc(s, cast.IsSpace) == ""
}

// identical is JavaScript's ===.
func identical(a, b object.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// numbers coerces both operands. Whitespace that coerced to 0 is treated as
// NaN so that " " never equals 0; only the first such operand is checked.
func numbers(v1, v2 object.Value) (float64, float64) {
	n1, n2 := cast.Number(v1), cast.Number(v2)
	if n1 == 0 && IsWhitespace(v1) {
		n1 = math.NaN()
	} else if n2 == 0 && IsWhitespace(v2) {
		n2 = math.NaN()
	}
	return n1, n2
}

// lowerStrings uses Unicode simple case mapping, which differs from
// toLowerCase only for the few characters with special casing rules.
func lowerStrings(v1, v2 object.Value) (string, string) {
	return strings.ToLower(cast.String(v1)), strings.ToLower(cast.String(v2))
}

// compareUTF16 orders strings by UTF-16 code units. Byte order disagrees for
// astral characters against U+E000 to U+FFFF.
func compareUTF16(a, b string) int {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

// CompareEqual compares numerically when both sides are numbers, otherwise
// as case-insensitive strings.
func CompareEqual(v1, v2 object.Value) bool {
	if identical(v1, v2) {
		return true
	}
	n1, n2 := numbers(v1, v2)
	if math.IsNaN(n1) || math.IsNaN(n2) {
		s1, s2 := lowerStrings(v1, v2)
		return s1 == s2
	}
	return n1 == n2
}

func CompareGreaterThan(v1, v2 object.Value) bool {
	n1, n2 := numbers(v1, v2)
	if math.IsNaN(n1) || math.IsNaN(n2) {
		s1, s2 := lowerStrings(v1, v2)
		return compareUTF16(s1, s2) > 0
	}
	return n1 > n2
}

func CompareLessThan(v1, v2 object.Value) bool {
	n1, n2 := numbers(v1, v2)
	if math.IsNaN(n1) || math.IsNaN(n2) {
		s1, s2 := lowerStrings(v1, v2)
		return compareUTF16(s1, s2) < 0
	}
	return n1 < n2
}
