package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/pkg/logger"
	"github.com/wonny/tradepilot/pkg/metrics"
)

// BreakerProvider guards the wrapped provider with a circuit breaker and
// records call metrics. After `failures` consecutive errors it fails fast
// with gobreaker.ErrOpenState until timeout elapses.
type BreakerProvider struct {
	next    contracts.MarketDataProvider
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.Registry
}

// NewBreakerProvider wraps next with a breaker named "marketdata"
func NewBreakerProvider(next contracts.MarketDataProvider, failures uint32, timeout time.Duration, m *metrics.Registry, log *logger.Logger) *BreakerProvider {
	if failures == 0 {
		failures = 1
	}
	log = log.WithComponent("marketdata.breaker")

	st := gobreaker.Settings{
		Name:    "marketdata",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// 호출자 취소는 소스 장애가 아님
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &BreakerProvider{next: next, cb: gobreaker.NewCircuitBreaker(st), metrics: m}
}

// State exposes the breaker state (health endpoint)
func (p *BreakerProvider) State() string {
	return p.cb.State().String()
}

func guard[T any](p *BreakerProvider, series string, call func() ([]T, error)) ([]T, error) {
	started := time.Now()
	out, err := p.cb.Execute(func() (interface{}, error) {
		return call()
	})
	p.metrics.ObserveProvider(series, started, err)
	if err != nil {
		return nil, err
	}
	return out.([]T), nil
}

func (p *BreakerProvider) GetStockDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	return guard(p, "stock_daily", func() ([]contracts.Bar, error) { return p.next.GetStockDaily(ctx, code, start, end) })
}

func (p *BreakerProvider) GetIndexDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	return guard(p, "index_daily", func() ([]contracts.Bar, error) { return p.next.GetIndexDaily(ctx, code, start, end) })
}

func (p *BreakerProvider) GetETFFlow(ctx context.Context, etfCode string, start, end time.Time) ([]contracts.ETFFlow, error) {
	return guard(p, "etf_flow", func() ([]contracts.ETFFlow, error) { return p.next.GetETFFlow(ctx, etfCode, start, end) })
}

func (p *BreakerProvider) GetMarginData(ctx context.Context, start, end time.Time) ([]contracts.MarginRecord, error) {
	return guard(p, "margin", func() ([]contracts.MarginRecord, error) { return p.next.GetMarginData(ctx, start, end) })
}

func (p *BreakerProvider) GetNorthboundFlow(ctx context.Context, start, end time.Time) ([]contracts.NorthboundFlow, error) {
	return guard(p, "northbound", func() ([]contracts.NorthboundFlow, error) { return p.next.GetNorthboundFlow(ctx, start, end) })
}

func (p *BreakerProvider) GetStockValuation(ctx context.Context, code string, start, end time.Time) ([]contracts.ValuationPoint, error) {
	return guard(p, "valuation", func() ([]contracts.ValuationPoint, error) { return p.next.GetStockValuation(ctx, code, start, end) })
}

func (p *BreakerProvider) GetSectorData(ctx context.Context, start, end time.Time) ([]contracts.SectorSnapshot, error) {
	return guard(p, "sector", func() ([]contracts.SectorSnapshot, error) { return p.next.GetSectorData(ctx, start, end) })
}
