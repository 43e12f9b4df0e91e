// Package technical computes MACD and the price/volume signals derived from it.
// Every function is pure: inputs are never modified and nothing is cached.
package technical

import (
	"iter"
	"time"

	"github.com/wonny/tradepilot/internal/contracts"
)

// MACD parameters (standard 12/26/9)
const (
	FastSpan   = 12
	SlowSpan   = 26
	SignalSpan = 9
)

// MACDPoint is one row of the MACD table
type MACDPoint struct {
	Date   time.Time `json:"date" parquet:"date,timestamp(millisecond)"`
	Close  float64   `json:"close" parquet:"close"`
	Volume int64     `json:"volume" parquet:"volume"`
	EMA12  float64   `json:"ema12" parquet:"ema12"`
	EMA26  float64   `json:"ema26" parquet:"ema26"`
	DIF    float64   `json:"dif" parquet:"dif"`
	DEA    float64   `json:"dea" parquet:"dea"`
	MACD   float64   `json:"macd" parquet:"macd"`
}

// EMA is the recursive exponential moving average with alpha = 2/(span+1),
// seeded by the first value and without bias correction.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// ComputeMACD returns one MACDPoint per bar.
// DIF = EMA12 - EMA26, DEA = EMA9(DIF), MACD = 2*(DIF-DEA).
func ComputeMACD(bars []contracts.Bar) []MACDPoint {
	if len(bars) == 0 {
		return []MACDPoint{}
	}

	closes := contracts.Closes(bars)
	fast := EMA(closes, FastSpan)
	slow := EMA(closes, SlowSpan)

	dif := make([]float64, len(bars))
	for i := range bars {
		dif[i] = fast[i] - slow[i]
	}
	dea := EMA(dif, SignalSpan)

	points := make([]MACDPoint, len(bars))
	for i, b := range bars {
		points[i] = MACDPoint{
			Date:   b.Date,
			Close:  b.Close,
			Volume: b.Volume,
			EMA12:  fast[i],
			EMA26:  slow[i],
			DIF:    dif[i],
			DEA:    dea[i],
			MACD:   2 * (dif[i] - dea[i]),
		}
	}
	return points
}

// Crosses yields DIF/DEA crossings in date order.
// Golden cross: prev <= 0 < curr; death cross: prev >= 0 > curr, on DIF-DEA.
// The sequence is finite and can be ranged over any number of times.
func Crosses(points []MACDPoint) iter.Seq[contracts.Signal] {
	return func(yield func(contracts.Signal) bool) {
		for i := 1; i < len(points); i++ {
			prev := points[i-1].DIF - points[i-1].DEA
			curr := points[i].DIF - points[i].DEA

			var sig contracts.Signal
			switch {
			case prev <= 0 && curr > 0:
				sig = contracts.Signal{Date: points[i].Date, Kind: contracts.GoldenCross, Name: "MACD金叉"}
			case prev >= 0 && curr < 0:
				sig = contracts.Signal{Date: points[i].Date, Kind: contracts.DeathCross, Name: "MACD死叉"}
			default:
				continue
			}
			if !yield(sig) {
				return
			}
		}
	}
}

// DetectCross collects Crosses
func DetectCross(points []MACDPoint) []contracts.Signal {
	out := []contracts.Signal{}
	for sig := range Crosses(points) {
		out = append(out, sig)
	}
	return out
}

// Tail returns the last n points (all of them when shorter)
func Tail[T any](s []T, n int) []T {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return s[:0]
	}
	return s[len(s)-n:]
}
