// Package marketdata implements contracts.MarketDataProvider over synthetic,
// PostgreSQL and DuckDB sources, with optional Redis caching and a circuit
// breaker in front.
package marketdata

import (
	"errors"
	"fmt"
	"io"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/pkg/config"
	"github.com/wonny/tradepilot/pkg/logger"
	"github.com/wonny/tradepilot/pkg/metrics"
	"github.com/wonny/tradepilot/pkg/redis"
)

// ErrUnknownSource is returned for an unsupported MARKET_DATA_SOURCE
var ErrUnknownSource = errors.New("unknown market data source")

// Deps are the shared resources a provider may need
type Deps struct {
	Postgres Querier       // required for source=postgres
	Redis    *redis.Client // optional cache
	Metrics  *metrics.Registry
	Logger   *logger.Logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the configured provider and applies the cache and breaker
// decorators. The returned Closer releases source-owned resources.
// ⭐ SSOT: 시세 소스 선택은 여기서만
func New(cfg *config.Config, deps Deps) (contracts.MarketDataProvider, io.Closer, error) {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	var (
		provider contracts.MarketDataProvider
		closer   io.Closer = nopCloser{}
	)

	switch cfg.MarketData.Source {
	case "mock":
		provider = NewMockProvider(cfg.MarketData.MockSeed)
	case "postgres":
		if deps.Postgres == nil {
			return nil, nil, fmt.Errorf("postgres source requires a database pool")
		}
		provider = NewPostgresProvider(deps.Postgres)
	case "duckdb":
		p, err := OpenDuckDB(cfg.MarketData.DuckDBPath)
		if err != nil {
			return nil, nil, err
		}
		provider, closer = p, p
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.MarketData.Source)
	}

	if deps.Redis != nil && deps.Redis.Enabled() {
		provider = NewCachedProvider(provider, redis.NewCache(deps.Redis, "tradepilot"), cfg.Redis.TTL, deps.Metrics, log)
	}

	if cfg.MarketData.BreakerEnabled {
		provider = NewBreakerProvider(provider, cfg.MarketData.BreakerFailures, cfg.MarketData.BreakerTimeout, deps.Metrics, log)
	}

	log.WithFields(map[string]interface{}{
		"source":  cfg.MarketData.Source,
		"cache":   deps.Redis != nil && deps.Redis.Enabled(),
		"breaker": cfg.MarketData.BreakerEnabled,
	}).Info("market data provider ready")

	return provider, closer, nil
}

var (
	_ contracts.MarketDataProvider = (*MockProvider)(nil)
	_ contracts.MarketDataProvider = (*PostgresProvider)(nil)
	_ contracts.MarketDataProvider = (*DuckDBProvider)(nil)
	_ contracts.MarketDataProvider = (*CachedProvider)(nil)
	_ contracts.MarketDataProvider = (*BreakerProvider)(nil)
)
