package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/fundflow"
	"github.com/wonny/tradepilot/internal/sector"
	"github.com/wonny/tradepilot/internal/strategyconfig"
	"github.com/wonny/tradepilot/internal/technical"
	"github.com/wonny/tradepilot/internal/valuation"
	"github.com/wonny/tradepilot/pkg/logger"
)

// AnalysisHandler runs single engines on provider data
type AnalysisHandler struct {
	provider contracts.MarketDataProvider
	policy   *strategyconfig.Config
	logger   *logger.Logger
	now      func() time.Time
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(provider contracts.MarketDataProvider, policy *strategyconfig.Config, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{provider: provider, policy: policy, logger: log, now: time.Now}
}

// TechnicalResponse is the technical read of one stock
type TechnicalResponse struct {
	StockCode string                `json:"stock_code"`
	Period    string                `json:"period"`
	Latest    *technical.MACDPoint  `json:"latest"`
	MACD      []technical.MACDPoint `json:"macd"`
	Signals   []contracts.Signal    `json:"signals"`
}

// Technical returns MACD points and technical signals
// GET /api/analysis/technical?stock_code=600519&period=daily&points=60
func (h *AnalysisHandler) Technical(w http.ResponseWriter, r *http.Request) {
	code, ok := requireQuery(w, r, "stock_code")
	if !ok {
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "daily"
	}
	if period != "daily" {
		respondError(w, http.StatusBadRequest, "only period=daily is supported")
		return
	}
	limit := 60
	if v := r.URL.Query().Get("points"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid points")
			return
		}
		limit = n
	}

	start, end, err := dateRange(r, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	bars, err := h.provider.GetStockDaily(r.Context(), code, start, end)
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to get daily bars")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve daily bars")
		return
	}
	if err := contracts.ValidateBars(bars); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	a := technical.AnalyzeStock(bars)
	resp := TechnicalResponse{
		StockCode: code,
		Period:    period,
		MACD:      technical.Tail(a.MACD, limit),
		Signals:   a.Signals(),
	}
	if len(a.MACD) > 0 {
		resp.Latest = &a.MACD[len(a.MACD)-1]
	}
	respondJSON(w, http.StatusOK, resp)
}

// Valuation returns PE/PB percentiles, risk-reward and valuation signals
// GET /api/analysis/valuation?stock_code=600519
func (h *AnalysisHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	code, ok := requireQuery(w, r, "stock_code")
	if !ok {
		return
	}
	start, end, err := dateRange(r, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		bars   []contracts.Bar
		points []contracts.ValuationPoint
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		bars, err = h.provider.GetStockDaily(ctx, code, start, end)
		return err
	})
	g.Go(func() (err error) {
		points, err = h.provider.GetStockValuation(ctx, code, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to get valuation inputs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve valuation data")
		return
	}

	result := valuation.AnalyzeValuation(points, bars)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code":        code,
		"pe_percentile":     result.PEPercentile,
		"pb_percentile":     result.PBPercentile,
		"risk_reward_ratio": result.RiskRewardRatio,
		"signals":           result.Signals,
	})
}

// FundFlowResponse is the market-wide fund-flow read
type FundFlowResponse struct {
	ETF        map[string]fundflow.FlowSummary `json:"etf"`
	Northbound fundflow.FlowSummary            `json:"northbound"`
	Margin     fundflow.MarginSummary          `json:"margin"`
	Sentiment  contracts.Sentiment             `json:"sentiment"`
}

// FundFlow returns ETF/northbound/margin summaries and the sentiment score
// GET /api/analysis/fund_flow
func (h *AnalysisHandler) FundFlow(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.fundFlow(r.Context(), start, end)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get fund flow inputs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve fund flow data")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *AnalysisHandler) fundFlow(ctx context.Context, start, end time.Time) (*FundFlowResponse, error) {
	codes := h.policy.MarketData.ETFCodes
	etf := make([][]contracts.ETFFlow, len(codes))
	var (
		northbound []contracts.NorthboundFlow
		margin     []contracts.MarginRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, code := range codes {
		g.Go(func() (err error) {
			etf[i], err = h.provider.GetETFFlow(gctx, code, start, end)
			return err
		})
	}
	g.Go(func() (err error) {
		northbound, err = h.provider.GetNorthboundFlow(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		margin, err = h.provider.GetMarginData(gctx, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []contracts.ETFFlow
	for _, flows := range etf {
		all = append(all, flows...)
	}
	resp := &FundFlowResponse{
		ETF:        fundflow.AnalyzeETFFlow(all),
		Northbound: fundflow.AnalyzeNorthbound(northbound),
		Margin:     fundflow.AnalyzeMargin(margin),
	}
	resp.Sentiment = fundflow.ComputeMarketSentiment(resp.ETF, resp.Northbound, resp.Margin)
	return resp, nil
}

// SectorRotation returns ranked sectors and switch suggestions
// GET /api/analysis/sector_rotation
func (h *AnalysisHandler) SectorRotation(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.provider.GetSectorData(r.Context(), start, end)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get sector data")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve sector data")
		return
	}
	respondJSON(w, http.StatusOK, sector.AnalyzeSectors(rows))
}

func analyzeTechnical(bars []contracts.Bar) []contracts.Signal {
	signals := technical.AnalyzeStock(bars).Signals()
	if signals == nil {
		signals = []contracts.Signal{}
	}
	return signals
}

func analyzeValuation(points []contracts.ValuationPoint, bars []contracts.Bar) []contracts.ValuationSignal {
	signals := valuation.AnalyzeValuation(points, bars).Signals
	if signals == nil {
		signals = []contracts.ValuationSignal{}
	}
	return signals
}
