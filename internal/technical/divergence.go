package technical

import (
	"github.com/wonny/tradepilot/internal/contracts"
)

// DefaultDivergenceWindow is the look-back used by AnalyzeStock and the risk evaluator
const DefaultDivergenceWindow = 60

// extremaRadius is the number of neighbours on each side a local extremum must dominate
const extremaRadius = 2

// DetectDivergence compares the two most recent local price lows (highs)
// in the trailing window against DIF at the same rows.
//
//	bull_divergence: lower price low, higher DIF low
//	bear_divergence: higher price high, lower DIF high
//
// Returns nothing when fewer than window points are available.
func DetectDivergence(points []MACDPoint, window int) []contracts.Signal {
	signals := []contracts.Signal{}
	if window <= 0 || len(points) < window {
		return signals
	}
	recent := Tail(points, window)

	var lows, highs []int
	for i := extremaRadius; i < len(recent)-extremaRadius; i++ {
		lo, hi := recent[i].Close, recent[i].Close
		for j := i - extremaRadius; j <= i+extremaRadius; j++ {
			lo = min(lo, recent[j].Close)
			hi = max(hi, recent[j].Close)
		}
		if recent[i].Close <= lo {
			lows = append(lows, i)
		}
		if recent[i].Close >= hi {
			highs = append(highs, i)
		}
	}

	if len(lows) >= 2 {
		a, b := recent[lows[len(lows)-2]], recent[lows[len(lows)-1]]
		if b.Close < a.Close && b.DIF > a.DIF {
			signals = append(signals, contracts.Signal{Date: b.Date, Kind: contracts.BullDivergence, Name: "底背离"})
		}
	}

	if len(highs) >= 2 {
		a, b := recent[highs[len(highs)-2]], recent[highs[len(highs)-1]]
		if b.Close > a.Close && b.DIF < a.DIF {
			signals = append(signals, contracts.Signal{Date: b.Date, Kind: contracts.BearDivergence, Name: "顶背离"})
		}
	}

	return signals
}
