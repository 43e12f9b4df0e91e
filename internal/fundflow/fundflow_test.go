package fundflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/tradepilot/internal/contracts"
)

var base = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func TestTrendRun(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   int
	}{
		{"empty", nil, 0},
		{"all positive", []float64{1, 2, 3, 4, 5}, 5},
		{"all negative", []float64{-1, -2, -3}, -3},
		{"flip stops run", []float64{5, -1, 2, 3}, 2},
		{"negative run after positive", []float64{1, 2, -1, -1}, -2},
		{"zero latest counts negative", []float64{-3, -1, 0}, -1},
		{"zero breaks positive run", []float64{1, 0, 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrendRun(tt.values)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, abs(got), len(tt.values))
		})
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestAnalyzeETFFlow(t *testing.T) {
	var flows []contracts.ETFFlow
	// out of order on purpose; 510300 has six sessions
	for i := 5; i >= 0; i-- {
		flows = append(flows, contracts.ETFFlow{Date: base.AddDate(0, 0, i), ETFCode: "510300", NetInflow: float64(i + 1)})
	}
	flows = append(flows, contracts.ETFFlow{Date: base, ETFCode: "510050", NetInflow: -2})

	got := AnalyzeETFFlow(flows)
	assert.Len(t, got, 2)
	// last five: 2..6
	assert.Equal(t, FlowSummary{Net5D: 20, Latest: 6, TrendDays: 5}, got["510300"])
	assert.Equal(t, FlowSummary{Net5D: -2, Latest: -2, TrendDays: -1}, got["510050"])

	assert.Empty(t, AnalyzeETFFlow(nil))
}

func TestAnalyzeNorthbound(t *testing.T) {
	assert.Equal(t, FlowSummary{}, AnalyzeNorthbound(nil))

	flows := []contracts.NorthboundFlow{
		{Date: base.AddDate(0, 0, 2), NetBuy: -1e9},
		{Date: base, NetBuy: 3e9},
		{Date: base.AddDate(0, 0, 1), NetBuy: -2e9},
	}
	got := AnalyzeNorthbound(flows)
	assert.Equal(t, 0.0, got.Net5D)
	assert.Equal(t, -1e9, got.Latest)
	assert.Equal(t, -2, got.TrendDays)
}

func TestAnalyzeMargin(t *testing.T) {
	assert.Equal(t, MarginSummary{}, AnalyzeMargin(nil))

	single := []contracts.MarginRecord{
		{Date: base, StockCode: "600519", MarginBalance: 100},
		{Date: base, StockCode: "000858", MarginBalance: 50},
	}
	assert.Equal(t, MarginSummary{TotalBalance: 150}, AnalyzeMargin(single))

	var recs []contracts.MarginRecord
	totals := []float64{100, 90, 95, 97, 99, 104, 110}
	for i, tot := range totals {
		recs = append(recs,
			contracts.MarginRecord{Date: base.AddDate(0, 0, i), StockCode: "A", MarginBalance: tot - 10},
			contracts.MarginRecord{Date: base.AddDate(0, 0, i), StockCode: "B", MarginBalance: 10},
		)
	}
	got := AnalyzeMargin(recs)
	assert.Equal(t, 110.0, got.TotalBalance)
	assert.Equal(t, 6.0, got.DailyChange)
	// changes: -10, +5, +2, +2, +5, +6 -> last five all positive
	assert.Equal(t, 5, got.TrendDays)
}

func TestAnalyzeMargin_MixedLocations(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	recs := []contracts.MarginRecord{
		{Date: base, StockCode: "600519", MarginBalance: 100},
		{Date: base.In(shanghai), StockCode: "000858", MarginBalance: 50},
		{Date: base.AddDate(0, 0, 1), StockCode: "600519", MarginBalance: 110},
		{Date: base.AddDate(0, 0, 1).In(shanghai), StockCode: "000858", MarginBalance: 60},
	}
	got := AnalyzeMargin(recs)
	assert.Equal(t, 170.0, got.TotalBalance)
	assert.Equal(t, 20.0, got.DailyChange)
	assert.Equal(t, 1, got.TrendDays)
}

func TestComputeMarketSentiment(t *testing.T) {
	t.Run("hot scenario", func(t *testing.T) {
		etf := map[string]FlowSummary{"510300": {Net5D: 1.5e9}, "510050": {Net5D: 0.5e9}}
		got := ComputeMarketSentiment(etf, FlowSummary{Net5D: 5e10}, MarginSummary{TrendDays: 3})
		assert.Equal(t, 76.0, got.Score)
		assert.Equal(t, contracts.SentimentHot, got.Label)
	})

	t.Run("neutral without data", func(t *testing.T) {
		got := ComputeMarketSentiment(nil, FlowSummary{}, MarginSummary{})
		assert.Equal(t, contracts.Sentiment{Score: 50, Label: contracts.SentimentNeutral}, got)
	})

	t.Run("label from unrounded score", func(t *testing.T) {
		// 50 + 15 + 4.96 + 5×2 = 79.96, reported as 80
		etf := map[string]FlowSummary{"510300": {Net5D: 3e9}}
		got := ComputeMarketSentiment(etf, FlowSummary{Net5D: 9.92e9}, MarginSummary{TrendDays: 5})
		assert.Equal(t, 80.0, got.Score)
		assert.Equal(t, contracts.SentimentHot, got.Label)
	})

	t.Run("clamped to zero", func(t *testing.T) {
		got := ComputeMarketSentiment(map[string]FlowSummary{"x": {Net5D: -1e12}}, FlowSummary{Net5D: -1e12}, MarginSummary{TrendDays: -20})
		assert.Equal(t, 0.0, got.Score)
		assert.Equal(t, contracts.SentimentCold, got.Label)
	})
}

func TestSentimentLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, contracts.SentimentOverheated},
		{80, contracts.SentimentOverheated},
		{79.9, contracts.SentimentHot},
		{60, contracts.SentimentHot},
		{59.9, contracts.SentimentNeutral},
		{40, contracts.SentimentNeutral},
		{39.9, contracts.SentimentCold},
		{0, contracts.SentimentCold},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SentimentLabel(tt.score), "score %v", tt.score)
	}
}
