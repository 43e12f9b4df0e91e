package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/tradeplan"
	"github.com/wonny/tradepilot/pkg/logger"
)

// Evaluator runs the full engine pipeline on one stock
type Evaluator interface {
	Evaluate(ctx context.Context, code string) (*tradeplan.Evaluation, error)
}

// SignalHandler serves composite scores
type SignalHandler struct {
	evaluator Evaluator
	analysis  *AnalysisHandler
	logger    *logger.Logger
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(evaluator Evaluator, analysis *AnalysisHandler, log *logger.Logger) *SignalHandler {
	return &SignalHandler{evaluator: evaluator, analysis: analysis, logger: log}
}

// SignalListResponse lists every fired signal of one stock
type SignalListResponse struct {
	StockCode string                      `json:"stock_code"`
	Technical []contracts.Signal          `json:"technical"`
	Valuation []contracts.ValuationSignal `json:"valuation"`
}

// List returns technical and valuation signals
// GET /api/signal/list?stock_code=600519
func (h *SignalHandler) List(w http.ResponseWriter, r *http.Request) {
	code, ok := requireQuery(w, r, "stock_code")
	if !ok {
		return
	}
	start, end, err := dateRange(r, h.analysis.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	bars, err := h.analysis.provider.GetStockDaily(ctx, code, start, end)
	if err == nil {
		err = contracts.ValidateBars(bars)
	}
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to get daily bars")
		respondError(w, statusFor(err), clientMessage(err, "Failed to retrieve daily bars"))
		return
	}
	points, err := h.analysis.provider.GetStockValuation(ctx, code, start, end)
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to get valuation")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve valuation data")
		return
	}

	resp := SignalListResponse{
		StockCode: code,
		Technical: analyzeTechnical(bars),
		Valuation: analyzeValuation(points, bars),
	}
	respondJSON(w, http.StatusOK, resp)
}

// Score returns the composite score, label and reasons
// GET /api/signal/score?stock_code=600519
func (h *SignalHandler) Score(w http.ResponseWriter, r *http.Request) {
	code, ok := requireQuery(w, r, "stock_code")
	if !ok {
		return
	}

	eval, err := h.evaluator.Evaluate(r.Context(), code)
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to score stock")
		respondError(w, statusFor(err), clientMessage(err, "Failed to score stock"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stock_code":      code,
		"score":           eval.CompositeScore,
		"label":           eval.ScoreLabel,
		"reasons":         eval.Reasons,
		"sector_position": eval.SectorPosition,
		"sentiment":       eval.MarketSentiment,
	})
}
