// Package composite folds the four analytic lenses into one 0-100 score.
package composite

import (
	"fmt"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/pkg/numeric"
)

// Group is the lens a signal kind belongs to
type Group int

const (
	Technical Group = iota
	Valuation
)

// Weight is the contribution of one signal kind
type Weight struct {
	Group  Group
	Points float64
}

// Weights is the single source of signal polarity and magnitude
// ⭐ SSOT: 신호 가중치는 이 테이블에서만 정의
var Weights = map[contracts.SignalKind]Weight{
	contracts.GoldenCross:      {Technical, 15},
	contracts.BullDivergence:   {Technical, 15},
	contracts.VolumeBreakout:   {Technical, 15},
	contracts.ExtremeLowVolume: {Technical, 15},
	contracts.DeathCross:       {Technical, -15},
	contracts.BearDivergence:   {Technical, -15},
	contracts.HighShrink:       {Technical, -15},

	contracts.HighRRR: {Valuation, 5},
	contracts.LowPE:   {Valuation, 5},
	contracts.LowPB:   {Valuation, 5},
	contracts.HighPE:  {Valuation, -5},
	contracts.HighPB:  {Valuation, -5},
}

const (
	technicalCap    = 20.0
	sentimentFactor = 0.5
	sectorPoints    = 10.0
)

// Composite labels
const (
	StrongBuy  = "strong buy"
	BuyLabel   = "buy"
	Neutral    = "neutral"
	SellLabel  = "sell"
	StrongSell = "strong sell"
)

var sentimentDisplay = map[string]string{
	contracts.SentimentOverheated: "过热",
	contracts.SentimentHot:        "偏热",
	contracts.SentimentNeutral:    "中性",
	contracts.SentimentCold:       "偏冷",
}

// SentimentText is the display form of a sentiment label
func SentimentText(label string) string {
	if t, ok := sentimentDisplay[label]; ok {
		return t
	}
	return label
}

func reason(points float64, name string) string {
	if points > 0 {
		return "✓ " + name
	}
	return "✗ " + name
}

// ComputeCompositeScore starts at 50 and adds, in order:
// the technical sum clamped to ±20, valuation ±5 each, (sentiment-50)×0.5,
// and ±10 for a low/high sector. The total is clamped to [0,100].
func ComputeCompositeScore(
	technical []contracts.Signal,
	valuation []contracts.ValuationSignal,
	sentiment contracts.Sentiment,
	position contracts.SectorPosition,
) contracts.CompositeResult {
	score := 50.0
	reasons := []string{}

	var techScore float64
	for _, s := range technical {
		w, ok := Weights[s.Kind]
		if !ok || w.Group != Technical {
			continue
		}
		techScore += w.Points
		reasons = append(reasons, reason(w.Points, s.Name))
	}
	score += numeric.Clamp(techScore, -technicalCap, technicalCap)

	for _, s := range valuation {
		w, ok := Weights[s.Kind]
		if !ok || w.Group != Valuation {
			continue
		}
		score += w.Points
		reasons = append(reasons, reason(w.Points, s.Name))
	}

	score += (sentiment.Score - 50) * sentimentFactor
	line := fmt.Sprintf("资金面%s(%.0f)", SentimentText(sentiment.Label), sentiment.Score)
	switch {
	case sentiment.Score >= 60:
		reasons = append(reasons, reason(1, line))
	case sentiment.Score < 40:
		reasons = append(reasons, reason(-1, line))
	}

	switch position {
	case contracts.SectorLow:
		score += sectorPoints
		reasons = append(reasons, reason(1, "板块处于低位(高切低机会)"))
	case contracts.SectorHigh:
		score -= sectorPoints
		reasons = append(reasons, reason(-1, "板块处于高位(注意兑现)"))
	}

	// tier from the unrounded score; only the reported figure is rounded
	score = numeric.Clamp(score, 0, 100)
	return contracts.CompositeResult{Score: numeric.Round(score, 1), Label: Label(score), Reasons: reasons}
}

// Label maps a score to one of five tiers with boundaries at 20/40/60/80
func Label(score float64) string {
	switch {
	case score >= 80:
		return StrongBuy
	case score >= 60:
		return BuyLabel
	case score >= 40:
		return Neutral
	case score >= 20:
		return SellLabel
	default:
		return StrongSell
	}
}
