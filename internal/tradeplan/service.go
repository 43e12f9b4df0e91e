// Package tradeplan evaluates stocks for entry, persists entry/exit plans
// and monitors active plans against their stop-loss and take-profit lines.
package tradeplan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/tradepilot/internal/composite"
	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/fundflow"
	"github.com/wonny/tradepilot/internal/risk"
	"github.com/wonny/tradepilot/internal/sector"
	"github.com/wonny/tradepilot/internal/strategyconfig"
	"github.com/wonny/tradepilot/internal/technical"
	"github.com/wonny/tradepilot/internal/valuation"
	"github.com/wonny/tradepilot/pkg/logger"
	"github.com/wonny/tradepilot/pkg/metrics"
	"github.com/wonny/tradepilot/pkg/numeric"
)

const (
	supportLookback = 20
	supportFallback = 0.95
	entrySentiment  = 60.0
)

// Rationale lists attached to every plan
var (
	stopLossRationale   = []string{"日线MACD死叉", "跌破20日支撑位", "放量下跌"}
	takeProfitRationale = []string{"日线MACD死叉", "顶背离", "高位缩量", "市场情绪过热", "板块高位预警"}
)

// RotationSummary is the sector rotation slice of an evaluation
type RotationSummary struct {
	High        []sector.Mark       `json:"high"`
	Low         []sector.Mark       `json:"low"`
	Suggestions []sector.Suggestion `json:"suggestions"`
}

// Evaluation is the full entry read of one stock
type Evaluation struct {
	StockCode            string                   `json:"stock_code"`
	CurrentPrice         float64                  `json:"current_price"`
	SupportPrice         float64                  `json:"support_price"`
	CompositeScore       float64                  `json:"composite_score"`
	ScoreLabel           string                   `json:"score_label"`
	Reasons              []string                 `json:"reasons"`
	EntryConditions      []string                 `json:"entry_conditions"`
	StopLossConditions   []string                 `json:"stop_loss_conditions"`
	TakeProfitConditions []string                 `json:"take_profit_conditions"`
	RiskRewardRatio      *float64                 `json:"risk_reward_ratio"`
	PEPercentile         *float64                 `json:"pe_percentile"`
	PBPercentile         *float64                 `json:"pb_percentile"`
	MarketSentiment      contracts.Sentiment      `json:"market_sentiment"`
	SectorPosition       contracts.SectorPosition `json:"sector_position"`
	SectorRotation       RotationSummary          `json:"sector_rotation"`
}

// CreateRequest is the payload of a new plan.
// Nil percentages fall back to the strategy defaults; a missing or
// non-positive target falls back to the support price.
type CreateRequest struct {
	StockCode        string   `json:"stock_code"`
	StockName        string   `json:"stock_name"`
	EntryTargetPrice *float64 `json:"entry_target_price"`
	EntryQuantity    *int     `json:"entry_quantity"`
	EntryReason      string   `json:"entry_reason"`
	StopLossPct      *float64 `json:"stop_loss_pct"`
	TakeProfitPct    *float64 `json:"take_profit_pct"`
}

// Created is the stored plan plus the evaluation it was built from
type Created struct {
	Plan       *contracts.TradePlan `json:"plan"`
	Evaluation *Evaluation          `json:"evaluation"`
}

// MonitorResult is the exit read of one plan.
// Decisions are nil unless the plan is active with an actual entry.
type MonitorResult struct {
	Plan         *contracts.TradePlan    `json:"plan"`
	CurrentPrice *float64                `json:"current_price,omitempty"`
	StopLoss     *contracts.RiskDecision `json:"stop_loss"`
	TakeProfit   *contracts.RiskDecision `json:"take_profit"`
}

// Triggered reports whether either side fired
func (m MonitorResult) Triggered() bool {
	return (m.StopLoss != nil && m.StopLoss.Triggered) || (m.TakeProfit != nil && m.TakeProfit.Triggered)
}

// Service wires the analytic engines to a provider and a plan store
type Service struct {
	provider contracts.MarketDataProvider
	store    Store
	policy   *strategyconfig.Config
	metrics  *metrics.Registry
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a Service; a nil policy uses strategyconfig.Default()
func NewService(provider contracts.MarketDataProvider, store Store, policy *strategyconfig.Config, m *metrics.Registry, log *logger.Logger) *Service {
	if policy == nil {
		policy = strategyconfig.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		provider: provider,
		store:    store,
		policy:   policy,
		metrics:  m,
		logger:   log.WithComponent("tradeplan"),
		now:      time.Now,
	}
}

func (s *Service) window() (start, flowStart, end time.Time) {
	end = s.now().UTC().Truncate(24 * time.Hour)
	start = end.AddDate(0, 0, -s.policy.MarketData.LookbackDays)
	flowStart = end.AddDate(0, 0, -s.policy.MarketData.FlowDays)
	return start, flowStart, end
}

type marketView struct {
	sentiment contracts.Sentiment
	rotation  sector.Result
}

// market fetches every market-wide series concurrently
func (s *Service) market(ctx context.Context, flowStart, end time.Time) (marketView, error) {
	codes := s.policy.MarketData.ETFCodes
	etf := make([][]contracts.ETFFlow, len(codes))
	var (
		northbound []contracts.NorthboundFlow
		margin     []contracts.MarginRecord
		sectors    []contracts.SectorSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, code := range codes {
		g.Go(func() error {
			flows, err := s.provider.GetETFFlow(gctx, code, flowStart, end)
			if err != nil {
				return fmt.Errorf("etf flow %s: %w", code, err)
			}
			etf[i] = flows
			return nil
		})
	}
	g.Go(func() error {
		var err error
		if northbound, err = s.provider.GetNorthboundFlow(gctx, flowStart, end); err != nil {
			return fmt.Errorf("northbound flow: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if margin, err = s.provider.GetMarginData(gctx, flowStart, end); err != nil {
			return fmt.Errorf("margin data: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sectors, err = s.provider.GetSectorData(gctx, flowStart, end); err != nil {
			return fmt.Errorf("sector data: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return marketView{}, err
	}

	var all []contracts.ETFFlow
	for _, flows := range etf {
		all = append(all, flows...)
	}
	sentiment := fundflow.ComputeMarketSentiment(
		fundflow.AnalyzeETFFlow(all),
		fundflow.AnalyzeNorthbound(northbound),
		fundflow.AnalyzeMargin(margin),
	)
	return marketView{sentiment: sentiment, rotation: sector.AnalyzeSectors(sectors)}, nil
}

func (s *Service) stockBars(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	bars, err := s.provider.GetStockDaily(ctx, code, start, end)
	if err != nil {
		return nil, fmt.Errorf("stock daily %s: %w", code, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoMarketData, code)
	}
	if err := contracts.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("stock daily %s: %w", code, err)
	}
	return bars, nil
}

// Evaluate runs every engine on one stock and summarises entry conditions
func (s *Service) Evaluate(ctx context.Context, code string) (*Evaluation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: stock code required", ErrInvalidRequest)
	}
	start, flowStart, end := s.window()

	var (
		bars   []contracts.Bar
		points []contracts.ValuationPoint
		view   marketView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bars, err = s.stockBars(gctx, code, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		if points, err = s.provider.GetStockValuation(gctx, code, start, end); err != nil {
			return fmt.Errorf("stock valuation %s: %w", code, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		view, err = s.market(gctx, flowStart, end)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.WithError(err).WithField("code", code).Warn("evaluation fetch failed")
		return nil, err
	}

	tech := technical.AnalyzeStock(bars)
	signals := tech.Signals()
	val := valuation.AnalyzeValuation(points, bars)
	position := sector.DerivePosition(view.rotation, s.policy.SectorOf(code))
	result := composite.ComputeCompositeScore(signals, val.Signals, view.sentiment, position)
	s.metrics.Evaluation(result.Label)

	eval := &Evaluation{
		StockCode:            code,
		CurrentPrice:         numeric.Round(bars[len(bars)-1].Close, 2),
		SupportPrice:         numeric.Round(SupportPrice(bars), 2),
		CompositeScore:       result.Score,
		ScoreLabel:           result.Label,
		Reasons:              result.Reasons,
		EntryConditions:      entryConditions(signals, val.Signals, view.sentiment, view.rotation),
		StopLossConditions:   append([]string(nil), stopLossRationale...),
		TakeProfitConditions: append([]string(nil), takeProfitRationale...),
		RiskRewardRatio:      val.RiskRewardRatio,
		PEPercentile:         val.PEPercentile,
		PBPercentile:         val.PBPercentile,
		MarketSentiment:      view.sentiment,
		SectorPosition:       position,
		SectorRotation: RotationSummary{
			High:        view.rotation.HighPositions,
			Low:         view.rotation.LowOpportunities,
			Suggestions: view.rotation.SwitchSuggestions,
		},
	}

	s.logger.WithFields(map[string]interface{}{
		"code":  code,
		"score": eval.CompositeScore,
		"label": eval.ScoreLabel,
	}).Debug("stock evaluated")
	return eval, nil
}

// SupportPrice is the lowest low of the last 20 bars, or 95% of the last
// close when fewer than 20 bars exist. bars must be non-empty.
func SupportPrice(bars []contracts.Bar) float64 {
	if len(bars) >= supportLookback {
		return technical.MinLow(bars, supportLookback)
	}
	return bars[len(bars)-1].Close * supportFallback
}

func entryConditions(signals []contracts.Signal, val []contracts.ValuationSignal, sentiment contracts.Sentiment, rotation sector.Result) []string {
	out := []string{}
	for _, sig := range signals {
		switch sig.Kind {
		case contracts.GoldenCross, contracts.BullDivergence, contracts.VolumeBreakout, contracts.ExtremeLowVolume:
			out = append(out, "✓ "+sig.Name)
		}
	}
	for _, sig := range val {
		if sig.Direction == contracts.Buy {
			out = append(out, "✓ "+sig.Name)
		}
	}
	if sentiment.Score >= entrySentiment {
		out = append(out, "✓ 资金面"+composite.SentimentText(sentiment.Label))
	}
	for _, m := range rotation.LowOpportunities {
		out = append(out, "✓ "+m.Sector+"板块低位")
	}
	return out
}

// Create evaluates the stock and stores a draft plan priced off the evaluation
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	req.StockCode = strings.TrimSpace(req.StockCode)
	if req.StockCode == "" || strings.TrimSpace(req.StockName) == "" {
		return nil, fmt.Errorf("%w: stock_code and stock_name required", ErrInvalidRequest)
	}
	stopPct := s.policy.Plan.DefaultStopLossPct
	if req.StopLossPct != nil {
		stopPct = *req.StopLossPct
	}
	takePct := s.policy.Plan.DefaultTakeProfitPct
	if req.TakeProfitPct != nil {
		takePct = *req.TakeProfitPct
	}
	if stopPct <= -100 || stopPct >= 0 {
		return nil, fmt.Errorf("%w: stop_loss_pct must be in (-100, 0)", ErrInvalidRequest)
	}
	if takePct <= 0 {
		return nil, fmt.Errorf("%w: take_profit_pct must be positive", ErrInvalidRequest)
	}

	eval, err := s.Evaluate(ctx, req.StockCode)
	if err != nil {
		return nil, err
	}

	entry := eval.SupportPrice
	if req.EntryTargetPrice != nil && *req.EntryTargetPrice > 0 {
		entry = *req.EntryTargetPrice
	}

	summary, err := json.Marshal(eval.Reasons)
	if err != nil {
		return nil, fmt.Errorf("marshal signal summary: %w", err)
	}

	plan := &contracts.TradePlan{
		StockCode:            req.StockCode,
		StockName:            req.StockName,
		EntryTargetPrice:     entry,
		EntryReason:          req.EntryReason,
		EntryConditions:      eval.EntryConditions,
		StopLossPrice:        numeric.Round(entry*(1+stopPct/100), 2),
		StopLossPct:          stopPct,
		StopLossConditions:   eval.StopLossConditions,
		TakeProfitPrice:      numeric.Round(entry*(1+takePct/100), 2),
		TakeProfitPct:        takePct,
		TakeProfitConditions: eval.TakeProfitConditions,
		RiskRewardRatio:      eval.RiskRewardRatio,
		CompositeScore:       eval.CompositeScore,
		SignalSummary:        string(summary),
		Status:               contracts.PlanDraft,
	}
	if req.EntryQuantity != nil {
		plan.EntryQuantity = *req.EntryQuantity
	}

	if _, err := s.store.Insert(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"plan_id": plan.ID,
		"code":    plan.StockCode,
		"entry":   plan.EntryTargetPrice,
	}).Info("trade plan created")
	return &Created{Plan: plan, Evaluation: eval}, nil
}

// UpdateStatus moves a plan to update.Status
func (s *Service) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error {
	if !update.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, update.Status)
	}
	if err := s.store.UpdateStatus(ctx, id, update); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"plan_id": id,
		"status":  update.Status,
		"entry":   update.RecordsEntry(),
	}).Info("trade plan status updated")
	return nil
}

// List returns plans newest first, optionally filtered by status
func (s *Service) List(ctx context.Context, status contracts.PlanStatus) ([]contracts.TradePlan, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	return s.store.List(ctx, status)
}

// Get returns one plan
func (s *Service) Get(ctx context.Context, id int64) (*contracts.TradePlan, error) {
	return s.store.Get(ctx, id)
}

// Delete removes a plan
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("plan_id", id).Info("trade plan deleted")
	return nil
}

// Monitor checks one plan's stop-loss and take-profit lines
func (s *Service) Monitor(ctx context.Context, id int64) (*MonitorResult, error) {
	plan, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.monitorPlan(ctx, plan)
}

func (s *Service) monitorPlan(ctx context.Context, plan *contracts.TradePlan) (*MonitorResult, error) {
	result := &MonitorResult{Plan: plan}
	if plan.Status != contracts.PlanActive || plan.EntryActualPrice == nil || *plan.EntryActualPrice <= 0 {
		return result, nil
	}

	start, flowStart, end := s.window()
	var (
		bars []contracts.Bar
		view marketView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bars, err = s.stockBars(gctx, plan.StockCode, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		view, err = s.market(gctx, flowStart, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entry := *plan.EntryActualPrice
	current := bars[len(bars)-1].Close
	result.CurrentPrice = &current

	stop, err := risk.EvaluateStopLoss(entry, current, plan.StopLossPct, bars)
	if err != nil {
		return nil, fmt.Errorf("stop-loss plan %d: %w", plan.ID, err)
	}
	sentiment := view.sentiment
	take, err := risk.EvaluateTakeProfit(entry, current, plan.TakeProfitPct, bars, risk.Overlay{
		Sentiment: &sentiment,
		Position:  sector.DerivePosition(view.rotation, s.policy.SectorOf(plan.StockCode)),
	})
	if err != nil {
		return nil, fmt.Errorf("take-profit plan %d: %w", plan.ID, err)
	}
	result.StopLoss = &stop
	result.TakeProfit = &take

	for _, c := range stop.Conditions {
		s.metrics.ExitTrigger("stop_loss", c.Type)
	}
	for _, c := range take.Conditions {
		s.metrics.ExitTrigger("take_profit", c.Type)
	}
	return result, nil
}

// MonitorActive checks every active plan. A failing plan is logged and
// skipped so one bad stock does not hide the others.
func (s *Service) MonitorActive(ctx context.Context) ([]MonitorResult, error) {
	plans, err := s.store.List(ctx, contracts.PlanActive)
	if err != nil {
		return nil, err
	}

	results := make([]MonitorResult, 0, len(plans))
	for i := range plans {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.monitorPlan(ctx, &plans[i])
		if err != nil {
			s.logger.WithError(err).WithField("plan_id", plans[i].ID).Warn("plan monitor failed")
			continue
		}
		if res.Triggered() {
			s.logger.WithFields(map[string]interface{}{
				"plan_id": plans[i].ID,
				"code":    plans[i].StockCode,
				"pnl_pct": res.StopLoss.PnLPct,
			}).Warn("exit condition triggered")
		}
		results = append(results, *res)
	}
	return results, nil
}
