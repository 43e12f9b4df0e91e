// Package numeric holds the rounding and clamping rules used for every
// figure tradepilot reports.
package numeric

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds x to places decimals, half away from zero.
// NaN and ±Inf are returned unchanged.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).Round(places).Float64()
	return f
}

// Clamp bounds x to [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// RoundPtr rounds a nullable figure
func RoundPtr(x *float64, places int32) *float64 {
	if x == nil {
		return nil
	}
	v := Round(*x, places)
	return &v
}

// Ptr returns a pointer to v
func Ptr(v float64) *float64 {
	return &v
}
