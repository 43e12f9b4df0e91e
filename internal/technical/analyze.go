package technical

import "github.com/wonny/tradepilot/internal/contracts"

// Analysis is the full technical read of one stock
type Analysis struct {
	MACD              []MACDPoint        `json:"macd"`
	CrossSignals      []contracts.Signal `json:"cross_signals"`
	DivergenceSignals []contracts.Signal `json:"divergence_signals"`
	VolumeSignals     []contracts.Signal `json:"volume_signals"`
}

// Signals concatenates cross, divergence and volume signals in that order
func (a Analysis) Signals() []contracts.Signal {
	out := make([]contracts.Signal, 0, len(a.CrossSignals)+len(a.DivergenceSignals)+len(a.VolumeSignals))
	out = append(out, a.CrossSignals...)
	out = append(out, a.DivergenceSignals...)
	out = append(out, a.VolumeSignals...)
	return out
}

// AnalyzeStock runs MACD, cross, divergence and volume detection on bars
func AnalyzeStock(bars []contracts.Bar) Analysis {
	points := ComputeMACD(bars)
	return Analysis{
		MACD:              points,
		CrossSignals:      DetectCross(points),
		DivergenceSignals: DetectDivergence(points, DefaultDivergenceWindow),
		VolumeSignals:     DetectVolumeAnomaly(bars),
	}
}
