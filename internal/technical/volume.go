package technical

import (
	"math"

	"github.com/wonny/tradepilot/internal/contracts"
)

const (
	minVolumeHistory  = 20
	rangeEpsilon      = 1e-10
	breakoutRatio     = 2.0
	shrinkRatio       = 0.5
	highPosition      = 0.8
	nearHighFactor    = 0.98
	extremeLowWindow  = 60
	extremeLowPadding = 1.05
)

// MeanVolume is the mean volume of the last n bars
func MeanVolume(bars []contracts.Bar, n int) float64 {
	tail := Tail(bars, n)
	if len(tail) == 0 {
		return 0
	}
	var sum float64
	for _, b := range tail {
		sum += float64(b.Volume)
	}
	return sum / float64(len(tail))
}

// CloseRange returns min and max close of the last n bars
func CloseRange(bars []contracts.Bar, n int) (lo, hi float64) {
	tail := Tail(bars, n)
	if len(tail) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, b := range tail {
		lo = min(lo, b.Close)
		hi = max(hi, b.Close)
	}
	return lo, hi
}

// MinLow is the lowest low of the last n bars
func MinLow(bars []contracts.Bar, n int) float64 {
	tail := Tail(bars, n)
	if len(tail) == 0 {
		return 0
	}
	lo := math.Inf(1)
	for _, b := range tail {
		lo = min(lo, b.Low)
	}
	return lo
}

// RangePosition places price in [lo, hi]; the denominator is guarded by epsilon.
func RangePosition(price, lo, hi float64) float64 {
	return (price - lo) / (hi - lo + rangeEpsilon)
}

// DetectVolumeAnomaly checks the latest bar for
// volume_breakout, high_shrink and extreme_low_volume. The three are
// independent and may fire together. Needs at least 20 bars.
func DetectVolumeAnomaly(bars []contracts.Bar) []contracts.Signal {
	signals := []contracts.Signal{}
	if len(bars) < minVolumeHistory {
		return signals
	}

	last := bars[len(bars)-1]
	vol := float64(last.Volume)
	ma5 := MeanVolume(bars, 5)
	low20, high20 := CloseRange(bars, 20)

	// 5일 평균 거래량이 0이면 비율 계열 신호는 판단 불가
	if ma5 > 0 {
		ratio := vol / ma5
		if ratio >= breakoutRatio && last.Close >= high20*nearHighFactor {
			signals = append(signals, contracts.Signal{Date: last.Date, Kind: contracts.VolumeBreakout, Name: "放量突破"})
		}
		if ratio <= shrinkRatio && RangePosition(last.Close, low20, high20) > highPosition {
			signals = append(signals, contracts.Signal{Date: last.Date, Kind: contracts.HighShrink, Name: "高位缩量"})
		}
	}

	minVol := int64(math.MaxInt64)
	for _, b := range Tail(bars, extremeLowWindow) {
		minVol = min(minVol, b.Volume)
	}
	if vol <= float64(minVol)*extremeLowPadding {
		signals = append(signals, contracts.Signal{Date: last.Date, Kind: contracts.ExtremeLowVolume, Name: "地量"})
	}

	return signals
}
