package marketdata

import (
	"context"
	"time"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/pkg/logger"
	"github.com/wonny/tradepilot/pkg/metrics"
	"github.com/wonny/tradepilot/pkg/redis"
)

// CachedProvider stores every series in Redis for ttl.
// Cache failures are logged and fall through to the wrapped provider.
type CachedProvider struct {
	next    contracts.MarketDataProvider
	cache   *redis.Cache
	ttl     time.Duration
	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewCachedProvider wraps next with a Redis cache
func NewCachedProvider(next contracts.MarketDataProvider, cache *redis.Cache, ttl time.Duration, m *metrics.Registry, log *logger.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl, metrics: m, logger: log.WithComponent("marketdata.cache")}
}

// cached is the read-through helper shared by every method
func cached[T any](ctx context.Context, p *CachedProvider, series, code string, start, end time.Time, load func() ([]T, error)) ([]T, error) {
	key := redis.SeriesKey(series, code, start, end)

	var hit []T
	found, err := p.cache.Get(ctx, key, &hit)
	if err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("cache read failed")
	}
	if found {
		p.metrics.CacheResult(series, true)
		return hit, nil
	}
	p.metrics.CacheResult(series, false)

	value, err := load()
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, value, p.ttl); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return value, nil
}

func (p *CachedProvider) GetStockDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	return cached(ctx, p, "stock_daily", code, start, end, func() ([]contracts.Bar, error) {
		return p.next.GetStockDaily(ctx, code, start, end)
	})
}

func (p *CachedProvider) GetIndexDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	return cached(ctx, p, "index_daily", code, start, end, func() ([]contracts.Bar, error) {
		return p.next.GetIndexDaily(ctx, code, start, end)
	})
}

func (p *CachedProvider) GetETFFlow(ctx context.Context, etfCode string, start, end time.Time) ([]contracts.ETFFlow, error) {
	return cached(ctx, p, "etf_flow", etfCode, start, end, func() ([]contracts.ETFFlow, error) {
		return p.next.GetETFFlow(ctx, etfCode, start, end)
	})
}

func (p *CachedProvider) GetMarginData(ctx context.Context, start, end time.Time) ([]contracts.MarginRecord, error) {
	return cached(ctx, p, "margin", "", start, end, func() ([]contracts.MarginRecord, error) {
		return p.next.GetMarginData(ctx, start, end)
	})
}

func (p *CachedProvider) GetNorthboundFlow(ctx context.Context, start, end time.Time) ([]contracts.NorthboundFlow, error) {
	return cached(ctx, p, "northbound", "", start, end, func() ([]contracts.NorthboundFlow, error) {
		return p.next.GetNorthboundFlow(ctx, start, end)
	})
}

// GetStockValuation is not cached: NaN multiples do not survive JSON encoding.
func (p *CachedProvider) GetStockValuation(ctx context.Context, code string, start, end time.Time) ([]contracts.ValuationPoint, error) {
	return p.next.GetStockValuation(ctx, code, start, end)
}

func (p *CachedProvider) GetSectorData(ctx context.Context, start, end time.Time) ([]contracts.SectorSnapshot, error) {
	return cached(ctx, p, "sector", "", start, end, func() ([]contracts.SectorSnapshot, error) {
		return p.next.GetSectorData(ctx, start, end)
	})
}
