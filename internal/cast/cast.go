// Package cast reproduces the loose type conversions block scripts were
// written against: JavaScript Number() and String() coercion, 32-bit integer
// truncation and the colour casts used by the pen and looks blocks.
package cast

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"tickvm/internal/object"
)

var (
	decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	hexColor       = regexp.MustCompile(`^#?([a-fA-F\d]{2})([a-fA-F\d]{2})([a-fA-F\d]{2})$`)
	shortHexColor  = regexp.MustCompile(`^#?([a-fA-F\d])([a-fA-F\d])([a-fA-F\d])$`)
)

// Number converts v the way JavaScript's Number(v) does. The result may be NaN.
func Number(v object.Value) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case nil:
		return 0
	case string:
		return parseNumber(x)
	case *object.List:
		return parseNumber(String(x))
	default:
		return math.NaN()
	}
}

// ToNumber is Number with NaN mapped to 0.
func ToNumber(v object.Value) float64 {
	n := Number(v)
	if math.IsNaN(n) {
		return 0
	}
	return n
}

func parseNumber(s string) float64 {
	s = strings.TrimFunc(s, IsSpace)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok || n.Sign() < 0 || strings.ContainsAny(s[2:], "+-_") {
				return math.NaN()
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f
		}
	}

	if !decimalLiteral.MatchString(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// ErrRange still carries the correctly signed Inf or 0.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// IsSpace reports whether r is whitespace for String.prototype.trim.
func IsSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// String converts v the way JavaScript's '' + v does.
func String(v object.Value) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return FormatNumber(x)
	case float32:
		return FormatNumber(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	case *object.List:
		return Join(x.Value, ",")
	default:
		return "[object Object]"
	}
}

// Join concatenates items like Array.prototype.join: nil items become "".
func Join(items []object.Value, sep string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString(sep)
		}
		if item != nil {
			sb.WriteString(String(item))
		}
	}
	return sb.String()
}

// Length is the JavaScript string length: UTF-16 code units.
func Length(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// FormatNumber renders f with Number.prototype.toString rules.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	digits := strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + exp[:1] + digits
}

// Int32 is the ToInt32 conversion behind JavaScript's x | 0.
func Int32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	t := math.Trunc(f)
	m := math.Mod(t, 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return int32(uint32(m))
}

// RGB is a colour with 0-255 channels.
type RGB struct {
	R, G, B, A int
}

// ToRGBColor accepts "#rrggbb", "#rgb" or a packed ARGB number. Malformed
// hex strings yield black.
func ToRGBColor(v object.Value) RGB {
	if s, ok := v.(string); ok && strings.HasPrefix(s, "#") {
		if c, ok := hexToRGB(s); ok {
			return c
		}
		return RGB{A: 255}
	}
	return decimalToRGB(ToNumber(v))
}

// ToRGBList returns the [r, g, b] channels of v.
func ToRGBList(v object.Value) []float64 {
	c := ToRGBColor(v)
	return []float64{float64(c.R), float64(c.G), float64(c.B)}
}

func hexToRGB(s string) (RGB, bool) {
	if m := shortHexColor.FindStringSubmatch(s); m != nil {
		s = m[1] + m[1] + m[2] + m[2] + m[3] + m[3]
	}
	m := hexColor.FindStringSubmatch(s)
	if m == nil {
		return RGB{}, false
	}
	channel := func(h string) int {
		n, _ := strconv.ParseUint(h, 16, 8)
		return int(n)
	}
	return RGB{R: channel(m[1]), G: channel(m[2]), B: channel(m[3]), A: 255}, true
}

func decimalToRGB(d float64) RGB {
	n := Int32(d)
	a := int((n >> 24) & 0xFF)
	if a == 0 {
		a = 255
	}
	return RGB{
		R: int((n >> 16) & 0xFF),
		G: int((n >> 8) & 0xFF),
		B: int(n & 0xFF),
		A: a,
	}
}
