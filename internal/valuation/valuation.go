// Package valuation ranks current PE/PB against their own history and
// measures risk-reward from the recent trading range.
package valuation

import (
	"fmt"
	"math"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/technical"
	"github.com/wonny/tradepilot/pkg/numeric"
)

const (
	DefaultPercentileWindow = 250

	rangeWindow     = 60
	minRangeBars    = 10
	minMove         = 0.01
	highRRRBoundary = 3.0
	lowPercentile   = 30.0
	highPercentile  = 80.0
)

// Result is the valuation read of one stock. Pointer fields are nil when
// the inputs could not support them.
type Result struct {
	PEPercentile    *float64                    `json:"pe_percentile"`
	PBPercentile    *float64                    `json:"pb_percentile"`
	RiskRewardRatio *float64                    `json:"risk_reward_ratio"`
	Signals         []contracts.ValuationSignal `json:"signals"`
}

// ComputePercentile returns the share (0-100) of the last window values
// strictly below the latest one. NaN entries are dropped after windowing.
// Fewer than two valid values yields the neutral 50.
func ComputePercentile(values []float64, window int) float64 {
	recent := technical.Tail(values, window)

	valid := make([]float64, 0, len(recent))
	for _, v := range recent {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) < 2 {
		return 50.0
	}

	current := valid[len(valid)-1]
	below := 0
	for _, v := range valid {
		if v < current {
			below++
		}
	}
	return float64(below) / float64(len(valid)) * 100
}

// RiskReward is upside to the 60-bar high over downside to the 60-bar low,
// each floored at 1%. ok is false with fewer than 10 bars.
func RiskReward(bars []contracts.Bar) (ratio float64, ok bool) {
	recent := technical.Tail(bars, rangeWindow)
	if len(recent) < minRangeBars {
		return 0, false
	}

	current := recent[len(recent)-1].Close
	if current <= 0 {
		return 0, false
	}

	support, resistance := math.Inf(1), math.Inf(-1)
	for _, b := range recent {
		support = min(support, b.Low)
		resistance = max(resistance, b.High)
	}

	downside := max((current-support)/current, minMove)
	upside := max((resistance-current)/current, minMove)
	return numeric.Round(upside/downside, 2), true
}

// AnalyzeValuation computes PE/PB percentiles, risk-reward and the
// resulting signals (order: high_rrr, low_pe, low_pb, high_pe, high_pb).
func AnalyzeValuation(points []contracts.ValuationPoint, bars []contracts.Bar) Result {
	result := Result{Signals: []contracts.ValuationSignal{}}
	if len(points) == 0 || len(bars) == 0 {
		return result
	}

	pes := make([]float64, len(points))
	pbs := make([]float64, len(points))
	for i, p := range points {
		pes[i] = p.PETTM
		pbs[i] = p.PB
	}

	pePct := ComputePercentile(pes, DefaultPercentileWindow)
	pbPct := ComputePercentile(pbs, DefaultPercentileWindow)
	result.PEPercentile = numeric.RoundPtr(&pePct, 1)
	result.PBPercentile = numeric.RoundPtr(&pbPct, 1)

	if rrr, ok := RiskReward(bars); ok {
		result.RiskRewardRatio = numeric.Ptr(rrr)
		if rrr > highRRRBoundary {
			result.Signals = append(result.Signals, contracts.ValuationSignal{
				Kind: contracts.HighRRR, Name: fmt.Sprintf("高值博率(%g)", rrr), Direction: contracts.Buy,
			})
		}
	}

	if pePct < lowPercentile {
		result.Signals = append(result.Signals, contracts.ValuationSignal{
			Kind: contracts.LowPE, Name: fmt.Sprintf("PE低分位(%.0f%%)", pePct), Direction: contracts.Buy,
		})
	}
	if pbPct < lowPercentile {
		result.Signals = append(result.Signals, contracts.ValuationSignal{
			Kind: contracts.LowPB, Name: fmt.Sprintf("PB低分位(%.0f%%)", pbPct), Direction: contracts.Buy,
		})
	}
	if pePct > highPercentile {
		result.Signals = append(result.Signals, contracts.ValuationSignal{
			Kind: contracts.HighPE, Name: fmt.Sprintf("PE高分位(%.0f%%)", pePct), Direction: contracts.Sell,
		})
	}
	if pbPct > highPercentile {
		result.Signals = append(result.Signals, contracts.ValuationSignal{
			Kind: contracts.HighPB, Name: fmt.Sprintf("PB高分位(%.0f%%)", pbPct), Direction: contracts.Sell,
		})
	}

	return result
}
