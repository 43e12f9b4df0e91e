package risk

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepilot/internal/contracts"
)

var base = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func flatBars(n int) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	for i := range bars {
		bars[i] = contracts.Bar{Date: base.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	}
	return bars
}

func types(d contracts.RiskDecision) []string {
	out := []string{}
	for _, c := range d.Conditions {
		out = append(out, c.Type)
	}
	return out
}

func TestInvalidEntryPrice(t *testing.T) {
	for _, entry := range []float64{0, -5, math.NaN()} {
		_, err := EvaluateStopLoss(entry, 10, -10, nil)
		assert.ErrorIs(t, err, ErrInvalidEntryPrice)

		_, err = EvaluateTakeProfit(entry, 10, 30, nil, Overlay{})
		assert.ErrorIs(t, err, ErrInvalidEntryPrice)
	}
}

func TestEvaluateStopLoss_ShortHistory(t *testing.T) {
	d, err := EvaluateStopLoss(100, 85, -10, flatBars(10))
	require.NoError(t, err)
	assert.True(t, d.Triggered)
	assert.Equal(t, []string{PctStop}, types(d))
	assert.Equal(t, "亏损-15.0%达到止损线-10%", d.Conditions[0].Name)
	assert.Equal(t, -15.0, d.PnLPct)

	d, err = EvaluateStopLoss(100, 95, -10, nil)
	require.NoError(t, err)
	assert.False(t, d.Triggered)
	assert.Empty(t, d.Conditions)
	assert.Equal(t, -5.0, d.PnLPct)
}

func TestEvaluateStopLoss_BreakSupport(t *testing.T) {
	d, err := EvaluateStopLoss(100, 95, -10, flatBars(30))
	require.NoError(t, err)
	assert.Equal(t, []string{BreakSupport}, types(d))
	assert.Equal(t, "跌破20日支撑位99.00", d.Conditions[0].Name)
}

func TestEvaluateStopLoss_VolumeDrop(t *testing.T) {
	bars := flatBars(30)
	bars[29].Open = 101
	bars[29].Volume = 5000

	d, err := EvaluateStopLoss(100, 100, -10, bars)
	require.NoError(t, err)
	assert.Equal(t, []string{VolumeDrop}, types(d))
}

func TestEvaluateStopLoss_DeathCross(t *testing.T) {
	bars := flatBars(30)
	for i := range bars {
		c := 100 + float64(i)
		if i >= 27 {
			c = 80 - float64(i-27)*10
		}
		bars[i].Open, bars[i].Close, bars[i].High, bars[i].Low = c, c, c+1, c-1
	}

	d, err := EvaluateStopLoss(100, 50, -90, bars)
	require.NoError(t, err)
	assert.True(t, d.Triggered)

	crosses := 0
	for _, c := range d.Conditions {
		if c.Type == DeathCross {
			crosses++
		}
	}
	assert.Equal(t, 1, crosses)
	assert.Contains(t, types(d), BreakSupport)
}

func TestEvaluateTakeProfit_Pct(t *testing.T) {
	d, err := EvaluateTakeProfit(100, 130, 30, nil, Overlay{})
	require.NoError(t, err)
	assert.Equal(t, []string{PctProfit}, types(d))
	assert.Equal(t, "盈利30.0%达到止盈线30%", d.Conditions[0].Name)
	assert.Equal(t, 30.0, d.PnLPct)
}

func TestEvaluateTakeProfit_Overlays(t *testing.T) {
	hot := contracts.Sentiment{Score: 85, Label: contracts.SentimentOverheated}
	d, err := EvaluateTakeProfit(100, 105, 30, nil, Overlay{Sentiment: &hot, Position: contracts.SectorHigh})
	require.NoError(t, err)
	assert.True(t, d.Triggered)
	assert.Equal(t, []string{Overheated, SectorHigh}, types(d))
	assert.Equal(t, "市场情绪过热(85)", d.Conditions[0].Name)

	mild := contracts.Sentiment{Score: 79.9, Label: contracts.SentimentHot}
	d, err = EvaluateTakeProfit(100, 105, 30, nil, Overlay{Sentiment: &mild, Position: contracts.SectorLow})
	require.NoError(t, err)
	assert.False(t, d.Triggered)
}

func TestEvaluateTakeProfit_HighShrink(t *testing.T) {
	bars := flatBars(30)
	for i := range bars {
		c := float64(i + 1)
		bars[i].Open, bars[i].Close, bars[i].High, bars[i].Low = c, c, c+0.5, c-0.5
	}
	bars[29].Volume = 100

	d, err := EvaluateTakeProfit(30, 30, 30, bars, Overlay{})
	require.NoError(t, err)
	assert.Equal(t, []string{HighShrink}, types(d))
}

func TestEvaluateTakeProfit_ShortHistory(t *testing.T) {
	// high-shrink shape on 29 bars: ignored below 30
	bars := flatBars(29)
	for i := range bars {
		c := float64(i + 1)
		bars[i].Open, bars[i].Close, bars[i].High, bars[i].Low = c, c, c+0.5, c-0.5
	}
	bars[28].Volume = 100

	d, err := EvaluateTakeProfit(29, 29, 30, bars, Overlay{})
	require.NoError(t, err)
	assert.False(t, d.Triggered)
	assert.Empty(t, d.Conditions)

	d, err = EvaluateTakeProfit(20, 29, 30, bars, Overlay{})
	require.NoError(t, err)
	assert.Equal(t, []string{PctProfit}, types(d))
}

func TestEvaluateTakeProfit_DeathCross(t *testing.T) {
	bars := flatBars(30)
	for i := range bars {
		c := 100 + float64(i)
		if i >= 27 {
			c = 80 - float64(i-27)*10
		}
		bars[i].Open, bars[i].Close, bars[i].High, bars[i].Low = c, c, c+1, c-1
	}

	d, err := EvaluateTakeProfit(40, 50, 30, bars, Overlay{})
	require.NoError(t, err)
	assert.Equal(t, []string{DeathCross}, types(d))
	assert.Equal(t, "MACD死叉", d.Conditions[0].Name)
}

// risingPeaks climbs 2/day to 158, pulls back to 143, creeps up to a
// higher 159.5 on weaker momentum, then rolls over.
func risingPeaks() []contracts.Bar {
	bars := flatBars(60)
	for i := range bars {
		var c float64
		switch {
		case i <= 29:
			c = 100 + 2*float64(i)
		case i <= 39:
			c = 158 - 1.5*float64(i-29)
		case i <= 54:
			c = 143 + 1.1*float64(i-39)
		default:
			c = 159.5 - 2*float64(i-54)
		}
		bars[i].Open, bars[i].Close, bars[i].High, bars[i].Low = c, c, c+0.5, c-0.5
	}
	return bars
}

func TestEvaluateTakeProfit_BearDivergence(t *testing.T) {
	bars := risingPeaks()

	d, err := EvaluateTakeProfit(100, 150, 60, bars, Overlay{})
	require.NoError(t, err)
	assert.True(t, d.Triggered)
	assert.Equal(t, []string{DeathCross, BearDivergence}, types(d))
	assert.Equal(t, "顶背离", d.Conditions[1].Name)

	// divergence needs the full 60-bar window
	d, err = EvaluateTakeProfit(100, 150, 60, bars[1:], Overlay{})
	require.NoError(t, err)
	assert.NotContains(t, types(d), BearDivergence)
}

func TestPnLRounding(t *testing.T) {
	d, err := EvaluateTakeProfit(3, 3.1, 30, nil, Overlay{})
	require.NoError(t, err)
	assert.Equal(t, 3.33, d.PnLPct)
}
