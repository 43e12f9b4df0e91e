package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/wonny/tradepilot/internal/api"
	"github.com/wonny/tradepilot/internal/api/handlers"
	"github.com/wonny/tradepilot/internal/scheduler"
	"github.com/wonny/tradepilot/internal/scheduler/jobs"
)

var withMonitor bool

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Start the TradePilot REST API server.

시세 조회, 기술/估值/资金面 분석, 종합 점수, 포트폴리오, 거래계획 API 제공.
포트폴리오/거래계획 라우트는 DATABASE_URL 설정 시에만 등록됩니다.

Example:
  go run ./cmd/tradepilot api
  go run ./cmd/tradepilot api --monitor`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().BoolVar(&withMonitor, "monitor", false, "also run the plan monitor job in-process (requires DATABASE_URL)")
}

func runAPI(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// 1. Load config and connect backends
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.log.WithFields(map[string]interface{}{
		"strategy": a.policy.Meta.StrategyID,
		"version":  a.policy.Meta.Version,
		"source":   a.cfg.MarketData.Source,
	}).Info("Starting TradePilot API")

	// 2. Build handlers
	plans := a.plans()
	analysis := handlers.NewAnalysisHandler(a.provider, a.policy, a.log)
	h := api.Handlers{
		Market:   handlers.NewMarketHandler(a.provider, a.policy, a.log),
		Analysis: analysis,
		Signal:   handlers.NewSignalHandler(plans, analysis, a.log),
	}
	if a.db != nil {
		h.Portfolio = handlers.NewPortfolioHandler(a.portfolio(), a.log)
		h.TradePlan = handlers.NewTradePlanHandler(plans, a.log)
	} else {
		a.log.Warn("DATABASE_URL not set, portfolio and trade plan routes disabled")
	}

	// 3. Optional in-process monitor
	var sched *scheduler.Scheduler
	if withMonitor {
		if a.db == nil {
			return errNoDatabase
		}
		sched, err = newMonitorScheduler(a, plans)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	// 4. Router and server
	router := api.NewRouter(h, api.RouterConfig{
		Logger:  a.log,
		Metrics: a.metrics,
		Limiter: rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RequestsPerSecond), a.cfg.RateLimit.Burst),
		Health:  healthReport(a, sched),
	})
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("=== TradePilot API listening on :%s ===\n", a.cfg.Port)

	// 5. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	// Graceful shutdown with 30s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.log.Info("Server exited")
	return nil
}

// healthReport builds the /health payload from live backends
func healthReport(a *app, sched *scheduler.Scheduler) func() map[string]interface{} {
	type stater interface{ State() string }

	return func() map[string]interface{} {
		report := map[string]interface{}{
			"source":   a.cfg.MarketData.Source,
			"strategy": a.policy.Meta.StrategyID,
			"cache":    a.redis != nil && a.redis.Enabled(),
		}
		if b, ok := a.provider.(stater); ok {
			report["breaker"] = b.State()
		}
		if a.db != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			report["database"] = a.db.HealthCheck(ctx)
		}
		if sched != nil {
			report["jobs"] = sched.GetJobStats()
		}
		return report
	}
}

// newMonitorScheduler registers the plan monitor job in the strategy timezone
func newMonitorScheduler(a *app, monitor jobs.PlanMonitor) (*scheduler.Scheduler, error) {
	if !a.policy.Monitor.Enabled {
		return nil, fmt.Errorf("monitor is disabled in strategy %s", a.policy.Meta.StrategyID)
	}

	opts := []scheduler.Option{scheduler.WithMetrics(a.metrics)}
	if tz := a.policy.Meta.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %s: %w", tz, err)
		}
		opts = append(opts, scheduler.WithLocation(loc))
	}

	sched := scheduler.New(a.log, opts...)
	if err := sched.AddJob(jobs.NewPlanMonitorJob(monitor, a.policy.Monitor.Schedule, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}
