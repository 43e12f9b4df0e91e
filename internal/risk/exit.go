// Package risk evaluates stop-loss and take-profit triggers for a held
// position against its recent daily bars.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/technical"
	"github.com/wonny/tradepilot/pkg/numeric"
)

// ErrInvalidEntryPrice is returned for a non-positive (or NaN) entry price
var ErrInvalidEntryPrice = errors.New("entry price must be positive")

const (
	minHistory      = 30
	crossLookback   = 10
	supportLookback = 20
	volumeLookback  = 5
	volumeDropRatio = 2.0
	shrinkRatio     = 0.5
	highPosition    = 0.8
	overheatedScore = 80.0
)

// Exit condition types
const (
	PctStop        = "pct_stop"
	DeathCross     = "death_cross"
	BreakSupport   = "break_support"
	VolumeDrop     = "volume_drop"
	PctProfit      = "pct_profit"
	BearDivergence = "bear_divergence"
	HighShrink     = "high_shrink"
	Overheated     = "overheated"
	SectorHigh     = "sector_high"
)

// Overlay carries the optional market-wide checks of EvaluateTakeProfit.
// A nil Sentiment or empty Position skips the matching check.
type Overlay struct {
	Sentiment *contracts.Sentiment
	Position  contracts.SectorPosition
}

// PnLPct is the unrounded percentage gain of current over entry
func PnLPct(entry, current float64) (float64, error) {
	if math.IsNaN(entry) || entry <= 0 {
		return 0, ErrInvalidEntryPrice
	}
	return (current - entry) / entry * 100, nil
}

func fired(typ, name string) contracts.ExitCondition {
	return contracts.ExitCondition{Type: typ, Name: name, Triggered: true}
}

func decide(conditions []contracts.ExitCondition, pnl float64) contracts.RiskDecision {
	return contracts.RiskDecision{
		Triggered:  len(conditions) > 0,
		Conditions: conditions,
		PnLPct:     numeric.Round(pnl, 2),
	}
}

func recentDeathCrosses(points []technical.MACDPoint) []contracts.ExitCondition {
	var out []contracts.ExitCondition
	for sig := range technical.Crosses(technical.Tail(points, crossLookback)) {
		if sig.Kind == contracts.DeathCross {
			out = append(out, fired(DeathCross, "MACD死叉"))
		}
	}
	return out
}

// EvaluateStopLoss reports every firing stop condition:
// pct_stop always; death_cross, break_support and volume_drop with 30+ bars.
func EvaluateStopLoss(entry, current, stopLossPct float64, bars []contracts.Bar) (contracts.RiskDecision, error) {
	pnl, err := PnLPct(entry, current)
	if err != nil {
		return contracts.RiskDecision{}, err
	}

	conditions := []contracts.ExitCondition{}
	if pnl <= stopLossPct {
		conditions = append(conditions, fired(PctStop, fmt.Sprintf("亏损%.1f%%达到止损线%g%%", pnl, stopLossPct)))
	}

	if len(bars) >= minHistory {
		conditions = append(conditions, recentDeathCrosses(technical.ComputeMACD(bars))...)

		low20 := technical.MinLow(bars, supportLookback)
		if current < low20 {
			conditions = append(conditions, fired(BreakSupport, fmt.Sprintf("跌破20日支撑位%.2f", low20)))
		}

		last := bars[len(bars)-1]
		if float64(last.Volume) > technical.MeanVolume(bars, volumeLookback)*volumeDropRatio && last.Close < last.Open {
			conditions = append(conditions, fired(VolumeDrop, "放量下跌"))
		}
	}

	return decide(conditions, pnl), nil
}

// EvaluateTakeProfit reports every firing profit condition:
// pct_profit always; death_cross, bear_divergence and high_shrink with 30+
// bars; overheated and sector_high when the overlay supplies them.
func EvaluateTakeProfit(entry, current, takeProfitPct float64, bars []contracts.Bar, overlay Overlay) (contracts.RiskDecision, error) {
	pnl, err := PnLPct(entry, current)
	if err != nil {
		return contracts.RiskDecision{}, err
	}

	conditions := []contracts.ExitCondition{}
	if pnl >= takeProfitPct {
		conditions = append(conditions, fired(PctProfit, fmt.Sprintf("盈利%.1f%%达到止盈线%g%%", pnl, takeProfitPct)))
	}

	if len(bars) >= minHistory {
		points := technical.ComputeMACD(bars)
		conditions = append(conditions, recentDeathCrosses(points)...)

		for _, d := range technical.DetectDivergence(points, technical.DefaultDivergenceWindow) {
			if d.Kind == contracts.BearDivergence {
				conditions = append(conditions, fired(BearDivergence, "顶背离"))
			}
		}

		last := bars[len(bars)-1]
		low20, high20 := technical.CloseRange(bars, supportLookback)
		position := technical.RangePosition(current, low20, high20)
		if float64(last.Volume) < technical.MeanVolume(bars, volumeLookback)*shrinkRatio && position > highPosition {
			conditions = append(conditions, fired(HighShrink, "高位缩量"))
		}
	}

	if overlay.Sentiment != nil && overlay.Sentiment.Score >= overheatedScore {
		conditions = append(conditions, fired(Overheated, fmt.Sprintf("市场情绪过热(%.0f)", overlay.Sentiment.Score)))
	}
	if overlay.Position == contracts.SectorHigh {
		conditions = append(conditions, fired(SectorHigh, "所在板块处于高位"))
	}

	return decide(conditions, pnl), nil
}
