// Package fundflow summarises ETF subscriptions, northbound buying and
// margin balances into a single market sentiment score.
package fundflow

import (
	"maps"
	"slices"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/technical"
	"github.com/wonny/tradepilot/pkg/numeric"
)

// RecentDays is the look-back of every flow summary
const RecentDays = 5

// FlowSummary is the 5-day read of one flow series
type FlowSummary struct {
	Net5D     float64 `json:"net_5d"`
	Latest    float64 `json:"latest"`
	TrendDays int     `json:"trend_days"`
}

// MarginSummary is the aggregate margin balance read
type MarginSummary struct {
	TotalBalance float64 `json:"total_balance"`
	DailyChange  float64 `json:"daily_change"`
	TrendDays    int     `json:"trend_days"`
}

// TrendRun counts how many of the most recent values share the latest
// value's sign, walking backwards. Positive for inflow runs, negative
// otherwise; a zero latest value starts a negative run. Empty input is 0.
func TrendRun(values []float64) int {
	if len(values) == 0 {
		return 0
	}

	positive := values[len(values)-1] > 0
	run := 1
	for i := len(values) - 2; i >= 0; i-- {
		if (positive && values[i] > 0) || (!positive && values[i] < 0) {
			run++
			continue
		}
		break
	}
	if !positive {
		return -run
	}
	return run
}

func summarise(values []float64) FlowSummary {
	recent := technical.Tail(values, RecentDays)
	if len(recent) == 0 {
		return FlowSummary{}
	}
	var sum float64
	for _, v := range recent {
		sum += v
	}
	return FlowSummary{
		Net5D:     numeric.Round(sum, 2),
		Latest:    numeric.Round(recent[len(recent)-1], 2),
		TrendDays: TrendRun(recent),
	}
}

// AnalyzeETFFlow summarises each ETF's last five sessions, keyed by ETF code
func AnalyzeETFFlow(flows []contracts.ETFFlow) map[string]FlowSummary {
	byCode := map[string][]contracts.ETFFlow{}
	for _, f := range flows {
		byCode[f.ETFCode] = append(byCode[f.ETFCode], f)
	}

	result := make(map[string]FlowSummary, len(byCode))
	for code, group := range byCode {
		slices.SortStableFunc(group, func(a, b contracts.ETFFlow) int { return a.Date.Compare(b.Date) })
		values := make([]float64, len(group))
		for i, f := range group {
			values[i] = f.NetInflow
		}
		result[code] = summarise(values)
	}
	return result
}

// AnalyzeNorthbound summarises the last five sessions of northbound net buying
func AnalyzeNorthbound(flows []contracts.NorthboundFlow) FlowSummary {
	sorted := slices.Clone(flows)
	slices.SortStableFunc(sorted, func(a, b contracts.NorthboundFlow) int { return a.Date.Compare(b.Date) })

	values := make([]float64, len(sorted))
	for i, f := range sorted {
		values[i] = f.NetBuy
	}
	return summarise(values)
}

// AnalyzeMargin sums balances across stocks per date and reads the trend of
// the day-over-day changes (last five changes).
func AnalyzeMargin(records []contracts.MarginRecord) MarginSummary {
	if len(records) == 0 {
		return MarginSummary{}
	}

	// keyed by instant so one day in two locations stays one day
	daily := map[int64]float64{}
	for _, r := range records {
		daily[r.Date.UnixNano()] += r.MarginBalance
	}
	dates := slices.Sorted(maps.Keys(daily))

	last := daily[dates[len(dates)-1]]
	if len(dates) < 2 {
		return MarginSummary{TotalBalance: numeric.Round(last, 2)}
	}

	changes := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		changes = append(changes, daily[dates[i]]-daily[dates[i-1]])
	}

	return MarginSummary{
		TotalBalance: numeric.Round(last, 2),
		DailyChange:  numeric.Round(changes[len(changes)-1], 2),
		TrendDays:    TrendRun(technical.Tail(changes, RecentDays)),
	}
}

// ComputeMarketSentiment scores market temperature on 0-100:
//
//	50 + clamp(ΣETF net5d/1e9×5, ±15) + clamp(northbound net5d/1e10×5, ±10) + margin trend×2
func ComputeMarketSentiment(etf map[string]FlowSummary, northbound FlowSummary, margin MarginSummary) contracts.Sentiment {
	var etfTotal float64
	for _, code := range slices.Sorted(maps.Keys(etf)) {
		etfTotal += etf[code].Net5D
	}

	score := 50.0
	score += numeric.Clamp(etfTotal/1e9*5, -15, 15)
	score += numeric.Clamp(northbound.Net5D/1e10*5, -10, 10)
	score += float64(margin.TrendDays) * 2
	score = numeric.Clamp(score, 0, 100)

	return contracts.Sentiment{Score: numeric.Round(score, 1), Label: SentimentLabel(score)}
}

// SentimentLabel maps a score to its tier (inclusive lower bounds 80/60/40)
func SentimentLabel(score float64) string {
	switch {
	case score >= 80:
		return contracts.SentimentOverheated
	case score >= 60:
		return contracts.SentimentHot
	case score >= 40:
		return contracts.SentimentNeutral
	default:
		return contracts.SentimentCold
	}
}
