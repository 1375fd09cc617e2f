package prim

import (
	"math"
	"math/rand/v2"
	"time"

	"tickvm/internal/cast"
	"tickvm/internal/object"
)

// epoch2000 is 2000-01-01T00:00:00Z in Unix milliseconds.
const epoch2000 = 946684800000

const msPerDay = 24 * 60 * 60 * 1000

// Mod is floored modulo: the result takes the sign of modulus.
func Mod(n, modulus float64) float64 {
	result := math.Mod(n, modulus)
	if result/modulus < 0 {
		result += modulus
	}
	return result
}

// RandomInt picks uniformly from [low, high]; callers ensure low <= high.
func RandomInt(low, high float64) float64 {
	return low + math.Floor(rand.Float64()*((high+1)-low))
}

// RandomFloat picks uniformly from [low, high).
func RandomFloat(low, high float64) float64 {
	return rand.Float64()*(high-low) + low
}

// Tan takes degrees and returns exact infinities at the poles.
func Tan(angle float64) float64 {
	switch math.Mod(angle, 360) {
	case -270, 90:
		return math.Inf(1)
	case -90, 270:
		return math.Inf(-1)
	}
	return math.Round(math.Tan(math.Pi*angle/180)*1e10) / 1e10
}

// LimitPrecision snaps values within 1e-9 of an integer onto it.
func LimitPrecision(n float64) float64 {
	rounded := math.Round(n)
	if math.Abs(n-rounded) < 1e-9 {
		return rounded
	}
	return n
}

// DaysSince2000 is the fractional number of days between 2000-01-01 UTC and now.
func DaysSince2000(now time.Time) float64 {
	return float64(now.UnixMilli()-epoch2000) / msPerDay
}

// ColorToList converts a colour value to [r, g, b].
func ColorToList(color object.Value) []float64 {
	return cast.ToRGBList(color)
}
