package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"github.com/wonny/tradepilot/internal/contracts"
)

// MockProvider generates synthetic series on business days.
// Each request derives its own generator from the seed and the request
// parameters, so identical requests return identical data and no RNG
// state is shared between calls.
type MockProvider struct {
	seed uint64
}

// NewMockProvider creates a MockProvider with an explicit seed
func NewMockProvider(seed uint64) *MockProvider {
	return &MockProvider{seed: seed}
}

func (p *MockProvider) rng(series, code string, start, end time.Time) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(series))
	h.Write([]byte{0})
	h.Write([]byte(code))
	h.Write([]byte{0})
	h.Write([]byte(start.Format("20060102") + end.Format("20060102")))
	return rand.New(rand.NewPCG(p.seed, h.Sum64()))
}

// businessDays lists Mon-Fri dates in [start, end] at UTC midnight
func businessDays(start, end time.Time) []time.Time {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
	}
	return days
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func normal(r *rand.Rand, mean, sd float64) float64 {
	return mean + r.NormFloat64()*sd
}

// ohlcv walks a geometric random path from basePrice
func ohlcv(r *rand.Rand, days []time.Time, basePrice float64) []contracts.Bar {
	bars := make([]contracts.Bar, len(days))
	price := basePrice
	for i, d := range days {
		price *= 1 + normal(r, 0.0005, 0.02)
		high := price * (1 + uniform(r, 0, 0.03))
		low := price * (1 - uniform(r, 0, 0.03))
		bars[i] = contracts.Bar{
			Date:   d,
			Open:   low + (high-low)*uniform(r, 0.2, 0.8),
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 1_000_000 + r.Int64N(49_000_000),
		}
	}
	return bars
}

func (p *MockProvider) GetStockDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := p.rng("stock_daily", code, start, end)
	return ohlcv(r, businessDays(start, end), uniform(r, 10, 200)), nil
}

func (p *MockProvider) GetIndexDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, ok := indexBase[code]
	if !ok {
		base = 3000
	}
	return ohlcv(p.rng("index_daily", code, start, end), businessDays(start, end), base), nil
}

func (p *MockProvider) GetETFFlow(ctx context.Context, etfCode string, start, end time.Time) ([]contracts.ETFFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := p.rng("etf_flow", etfCode, start, end)
	days := businessDays(start, end)
	out := make([]contracts.ETFFlow, len(days))
	for i, d := range days {
		out[i] = contracts.ETFFlow{
			Date:      d,
			ETFCode:   etfCode,
			NetInflow: normal(r, 0, 5e8),
			Volume:    math.Floor(uniform(r, 1e7, 1e9)),
		}
	}
	return out, nil
}

// GetMarginData covers the first five demo stocks, each a random walk from its base balance
func (p *MockProvider) GetMarginData(ctx context.Context, start, end time.Time) ([]contracts.MarginRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := p.rng("margin", "", start, end)
	days := businessDays(start, end)
	out := make([]contracts.MarginRecord, 0, len(days)*5)
	for _, s := range stockUniverse[:5] {
		balance := uniform(r, 1e9, 5e9)
		for _, d := range days {
			balance += normal(r, 0, 1e7)
			out = append(out, contracts.MarginRecord{
				Date:          d,
				StockCode:     s.Code,
				MarginBalance: balance,
				MarginBuy:     uniform(r, 0, 1e8),
			})
		}
	}
	return out, nil
}

func (p *MockProvider) GetNorthboundFlow(ctx context.Context, start, end time.Time) ([]contracts.NorthboundFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := p.rng("northbound", "", start, end)
	days := businessDays(start, end)
	out := make([]contracts.NorthboundFlow, len(days))
	for i, d := range days {
		buy := uniform(r, 50e8, 200e8)
		sell := uniform(r, 50e8, 200e8)
		out[i] = contracts.NorthboundFlow{Date: d, NetBuy: buy - sell, BuyAmount: buy, SellAmount: sell}
	}
	return out, nil
}

func (p *MockProvider) GetStockValuation(ctx context.Context, code string, start, end time.Time) ([]contracts.ValuationPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := p.rng("valuation", code, start, end)
	days := businessDays(start, end)
	out := make([]contracts.ValuationPoint, len(days))
	for i, d := range days {
		out[i] = contracts.ValuationPoint{
			Date:      d,
			PETTM:     uniform(r, 10, 80),
			PB:        uniform(r, 1, 15),
			PS:        uniform(r, 2, 30),
			MarketCap: uniform(r, 1e10, 1e12),
		}
	}
	return out, nil
}

func (p *MockProvider) GetSectorData(ctx context.Context, start, end time.Time) ([]contracts.SectorSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := p.rng("sector", "", start, end)
	days := businessDays(start, end)
	out := make([]contracts.SectorSnapshot, 0, len(days)*len(sectorUniverse))
	for _, s := range sectorUniverse {
		for _, d := range days {
			out = append(out, contracts.SectorSnapshot{
				Date:      d,
				Sector:    s,
				AvgPE:     uniform(r, 10, 60),
				AvgPB:     uniform(r, 1, 8),
				Change1D:  normal(r, 0, 2),
				Change5D:  normal(r, 0, 4),
				Change20D: normal(r, 0, 8),
				Change60D: normal(r, 0, 15),
			})
		}
	}
	return out, nil
}
