package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/portfolio"
	"github.com/wonny/tradepilot/pkg/logger"
)

// PortfolioStore persists positions and trades
type PortfolioStore interface {
	ListOpenPositions(ctx context.Context) ([]contracts.Position, error)
	AddPosition(ctx context.Context, in portfolio.NewPosition) (*contracts.Position, error)
	ClosePosition(ctx context.Context, id int64) error
	ListTrades(ctx context.Context) ([]contracts.Trade, error)
	AddTrade(ctx context.Context, in portfolio.NewTrade) (*contracts.Trade, error)
}

// PortfolioHandler handles positions and the trade journal
type PortfolioHandler struct {
	store  PortfolioStore
	logger *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(store PortfolioStore, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{store: store, logger: log}
}

// ListPositions returns open positions
// GET /api/portfolio/positions
func (h *PortfolioHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.ListOpenPositions(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list positions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve positions")
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

type positionRequest struct {
	StockCode string  `json:"stock_code"`
	StockName string  `json:"stock_name"`
	BuyDate   Date    `json:"buy_date"`
	BuyPrice  float64 `json:"buy_price"`
	Quantity  int     `json:"quantity"`
}

// AddPosition opens a position
// POST /api/portfolio/positions
func (h *PortfolioHandler) AddPosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pos, err := h.store.AddPosition(r.Context(), portfolio.NewPosition{
		StockCode: req.StockCode,
		StockName: req.StockName,
		BuyDate:   req.BuyDate.Time,
		BuyPrice:  req.BuyPrice,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.logger.WithError(err).WithField("code", req.StockCode).Warn("Failed to add position")
		respondError(w, statusFor(err), clientMessage(err, "Failed to add position"))
		return
	}
	respondJSON(w, http.StatusCreated, pos)
}

// ClosePosition marks a position closed
// DELETE /api/portfolio/positions/{id}
func (h *PortfolioHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.ClosePosition(r.Context(), id); err != nil {
		h.logger.WithError(err).WithField("position_id", id).Warn("Failed to close position")
		respondError(w, statusFor(err), clientMessage(err, "Failed to close position"))
		return
	}
	respondOK(w)
}

// ListTrades returns the trade journal
// GET /api/portfolio/trades
func (h *PortfolioHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.store.ListTrades(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list trades")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve trades")
		return
	}
	respondJSON(w, http.StatusOK, trades)
}

type tradeRequest struct {
	Date      Date    `json:"date"`
	StockCode string  `json:"stock_code"`
	StockName string  `json:"stock_name"`
	Direction string  `json:"direction"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Reason    string  `json:"reason"`
}

// AddTrade appends to the trade journal
// POST /api/portfolio/trades
func (h *PortfolioHandler) AddTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	trade, err := h.store.AddTrade(r.Context(), portfolio.NewTrade{
		Date:      req.Date.Time,
		StockCode: req.StockCode,
		StockName: req.StockName,
		Direction: req.Direction,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
	})
	if err != nil {
		h.logger.WithError(err).WithField("code", req.StockCode).Warn("Failed to add trade")
		respondError(w, statusFor(err), clientMessage(err, "Failed to add trade"))
		return
	}
	respondJSON(w, http.StatusCreated, trade)
}
