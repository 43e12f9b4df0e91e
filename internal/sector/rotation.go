// Package sector ranks the latest sector cross-section by momentum and
// valuation and proposes high-to-low rotation pairs.
package sector

import (
	"fmt"
	"slices"
	"time"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/pkg/numeric"
)

const (
	highRank       = 0.8
	lowRank        = 0.3
	maxSuggestions = 5
)

// Rank is one sector of the latest cross-section with its ranks (0-1]
type Rank struct {
	contracts.SectorSnapshot
	MomentumRank  float64 `json:"momentum_rank"`
	ValuationRank float64 `json:"valuation_rank"`
}

// Mark summarises a flagged sector
type Mark struct {
	Sector    string  `json:"sector"`
	Change60D float64 `json:"change_60d"`
	AvgPB     float64 `json:"avg_pb"`
}

// Suggestion is one high-to-low rotation pair
type Suggestion struct {
	FromSector string `json:"from_sector"`
	ToSector   string `json:"to_sector"`
	Reason     string `json:"reason"`
}

// Result is the rotation read of the latest date
type Result struct {
	Date              time.Time    `json:"date"`
	Sectors           []Rank       `json:"sectors"`
	HighPositions     []Mark       `json:"high_positions"`
	LowOpportunities  []Mark       `json:"low_opportunities"`
	SwitchSuggestions []Suggestion `json:"switch_suggestions"`
}

// PercentRank ranks values ascending with ties averaged, scaled by n so
// the largest value ranks 1.0.
func PercentRank(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case values[a] < values[b]:
			return -1
		case values[a] > values[b]:
			return 1
		}
		return 0
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// positions i..j share the average of 1-based ranks i+1..j+1
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg / float64(n)
		}
		i = j + 1
	}
	return ranks
}

// AnalyzeSectors ranks the most recent date's sectors.
// Empty input yields empty lists.
func AnalyzeSectors(rows []contracts.SectorSnapshot) Result {
	result := Result{
		Sectors:           []Rank{},
		HighPositions:     []Mark{},
		LowOpportunities:  []Mark{},
		SwitchSuggestions: []Suggestion{},
	}
	if len(rows) == 0 {
		return result
	}

	latest := rows[0].Date
	for _, r := range rows[1:] {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	result.Date = latest

	var day []contracts.SectorSnapshot
	for _, r := range rows {
		if r.Date.Equal(latest) {
			day = append(day, r)
		}
	}

	momentum := make([]float64, len(day))
	pb := make([]float64, len(day))
	for i, r := range day {
		momentum[i] = r.Change60D
		pb[i] = r.AvgPB
	}
	momentumRank := PercentRank(momentum)
	valuationRank := PercentRank(pb)

	var high, low []contracts.SectorSnapshot
	for i, r := range day {
		result.Sectors = append(result.Sectors, Rank{SectorSnapshot: r, MomentumRank: momentumRank[i], ValuationRank: valuationRank[i]})

		if momentumRank[i] >= highRank && valuationRank[i] >= highRank {
			high = append(high, r)
			result.HighPositions = append(result.HighPositions, mark(r))
		}
		if momentumRank[i] <= lowRank && valuationRank[i] <= lowRank {
			low = append(low, r)
			result.LowOpportunities = append(result.LowOpportunities, mark(r))
		}
	}

	for _, h := range high {
		for _, l := range low {
			if len(result.SwitchSuggestions) == maxSuggestions {
				return result
			}
			result.SwitchSuggestions = append(result.SwitchSuggestions, Suggestion{
				FromSector: h.Sector,
				ToSector:   l.Sector,
				Reason: fmt.Sprintf("%s涨幅%.1f%%+PB%.1f → %s涨幅%.1f%%+PB%.1f",
					h.Sector, h.Change60D, h.AvgPB, l.Sector, l.Change60D, l.AvgPB),
			})
		}
	}

	return result
}

func mark(r contracts.SectorSnapshot) Mark {
	return Mark{Sector: r.Sector, Change60D: numeric.Round(r.Change60D, 2), AvgPB: numeric.Round(r.AvgPB, 2)}
}

// DerivePosition places a stock's sector in the rotation cycle.
// With a known sector the answer follows membership of the high/low lists.
// Without one, any high sector marks the whole market high.
func DerivePosition(result Result, stockSector string) contracts.SectorPosition {
	if stockSector == "" {
		if len(result.HighPositions) > 0 {
			return contracts.SectorHigh
		}
		return contracts.SectorNone
	}

	for _, m := range result.HighPositions {
		if m.Sector == stockSector {
			return contracts.SectorHigh
		}
	}
	for _, m := range result.LowOpportunities {
		if m.Sector == stockSector {
			return contracts.SectorLow
		}
	}
	return contracts.SectorNone
}
