package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/tradeplan"
	"github.com/wonny/tradepilot/pkg/logger"
)

// PlanService is the trade plan use-case surface
type PlanService interface {
	Evaluator
	Create(ctx context.Context, req tradeplan.CreateRequest) (*tradeplan.Created, error)
	List(ctx context.Context, status contracts.PlanStatus) ([]contracts.TradePlan, error)
	UpdateStatus(ctx context.Context, id int64, update tradeplan.StatusUpdate) error
	Monitor(ctx context.Context, id int64) (*tradeplan.MonitorResult, error)
	Delete(ctx context.Context, id int64) error
}

// TradePlanHandler handles /api/trade_plan
// ⭐ SSOT: 거래계획 API 핸들러는 이 구조체에서만
type TradePlanHandler struct {
	plans  PlanService
	logger *logger.Logger
}

// NewTradePlanHandler creates a new trade plan handler
func NewTradePlanHandler(plans PlanService, log *logger.Logger) *TradePlanHandler {
	return &TradePlanHandler{plans: plans, logger: log}
}

// Evaluate returns the entry evaluation of one stock
// GET /api/trade_plan/evaluate/{code}
func (h *TradePlanHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	eval, err := h.plans.Evaluate(r.Context(), code)
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to evaluate stock")
		respondError(w, statusFor(err), clientMessage(err, "Failed to evaluate stock"))
		return
	}
	respondJSON(w, http.StatusOK, eval)
}

// List returns plans, newest first
// GET /api/trade_plan/list?status=active
func (h *TradePlanHandler) List(w http.ResponseWriter, r *http.Request) {
	status := contracts.PlanStatus(r.URL.Query().Get("status"))
	plans, err := h.plans.List(r.Context(), status)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list trade plans")
		respondError(w, statusFor(err), clientMessage(err, "Failed to retrieve trade plans"))
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

// Create evaluates a stock and stores a plan
// POST /api/trade_plan/create
func (h *TradePlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tradeplan.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := h.plans.Create(r.Context(), req)
	if err != nil {
		h.logger.WithError(err).WithField("code", req.StockCode).Error("Failed to create trade plan")
		respondError(w, statusFor(err), clientMessage(err, "Failed to create trade plan"))
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":     "ok",
		"plan":       created.Plan,
		"evaluation": created.Evaluation,
	})
}

type statusRequest struct {
	Status           contracts.PlanStatus `json:"status"`
	EntryActualPrice *float64             `json:"entry_actual_price"`
	EntryTriggeredAt *Date                `json:"entry_triggered_at"`
}

// UpdateStatus changes a plan's status
// PUT /api/trade_plan/{id}/status
func (h *TradePlanHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	update := tradeplan.StatusUpdate{Status: req.Status, EntryActualPrice: req.EntryActualPrice}
	if req.EntryTriggeredAt != nil {
		at := req.EntryTriggeredAt.Time
		update.EntryTriggeredAt = &at
	}
	if err := h.plans.UpdateStatus(r.Context(), id, update); err != nil {
		h.logger.WithError(err).WithField("plan_id", id).Warn("Failed to update trade plan")
		respondError(w, statusFor(err), clientMessage(err, "Failed to update trade plan"))
		return
	}
	respondOK(w)
}

// Monitor evaluates a plan's exit conditions
// GET /api/trade_plan/{id}/monitor
func (h *TradePlanHandler) Monitor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.plans.Monitor(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("plan_id", id).Error("Failed to monitor trade plan")
		respondError(w, statusFor(err), clientMessage(err, "Failed to monitor trade plan"))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Delete removes a plan
// DELETE /api/trade_plan/{id}
func (h *TradePlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.plans.Delete(r.Context(), id); err != nil {
		h.logger.WithError(err).WithField("plan_id", id).Warn("Failed to delete trade plan")
		respondError(w, statusFor(err), clientMessage(err, "Failed to delete trade plan"))
		return
	}
	respondOK(w)
}
