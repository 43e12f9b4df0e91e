package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/marketdata"
	"github.com/wonny/tradepilot/internal/portfolio"
	"github.com/wonny/tradepilot/internal/strategyconfig"
	"github.com/wonny/tradepilot/internal/tradeplan"
	"github.com/wonny/tradepilot/pkg/config"
	"github.com/wonny/tradepilot/pkg/database"
	"github.com/wonny/tradepilot/pkg/logger"
	"github.com/wonny/tradepilot/pkg/metrics"
	"github.com/wonny/tradepilot/pkg/redis"
)

var errNoDatabase = errors.New("DATABASE_URL is required for this command")

// app holds the shared resources of every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Registry
	policy   *strategyconfig.Config
	db       *database.DB  // nil when no DATABASE_URL
	redis    *redis.Client // disabled unless REDIS_ENABLED
	provider contracts.MarketDataProvider
	closers  []io.Closer
}

// newApp loads config and connects every configured backend
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	policy, err := strategyconfig.LoadOrDefault(cfg.StrategyConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy config: %w", err)
	}
	for _, w := range strategyconfig.Warn(policy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	a := &app{cfg: cfg, log: log, policy: policy}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	if cfg.NeedsDatabase() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		log.Info("Connected to database")
	}

	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rdb
	a.closers = append(a.closers, rdb)

	deps := marketdata.Deps{Redis: rdb, Metrics: a.metrics, Logger: log}
	if a.db != nil {
		deps.Postgres = a.db.Pool
	}
	provider, closer, err := marketdata.New(cfg, deps)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("market data provider: %w", err)
	}
	a.provider = provider
	a.closers = append(a.closers, closer)

	return a, nil
}

// plans builds the trade plan service; the store is nil without a database
func (a *app) plans() *tradeplan.Service {
	var store tradeplan.Store
	if a.db != nil {
		store = tradeplan.NewRepository(a.db.Pool)
	}
	return tradeplan.NewService(a.provider, store, a.policy, a.metrics, a.log)
}

func (a *app) portfolio() *portfolio.Repository {
	if a.db == nil {
		return nil
	}
	return portfolio.NewRepository(a.db.Pool)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
