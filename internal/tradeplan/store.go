package tradeplan

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/tradepilot/internal/contracts"
)

var (
	// ErrPlanNotFound is returned when no plan has the requested id
	ErrPlanNotFound = errors.New("trade plan not found")
	// ErrInvalidRequest wraps every rejected create/update payload
	ErrInvalidRequest = errors.New("invalid trade plan request")
	// ErrNoMarketData is returned when the provider has no bars for a stock
	ErrNoMarketData = errors.New("no market data")
)

// StatusUpdate moves a plan through its lifecycle.
// The actual entry is recorded only when both fields are present.
type StatusUpdate struct {
	Status           contracts.PlanStatus `json:"status"`
	EntryActualPrice *float64             `json:"entry_actual_price"`
	EntryTriggeredAt *time.Time           `json:"entry_triggered_at"`
}

// RecordsEntry reports whether the update carries a complete actual entry
func (u StatusUpdate) RecordsEntry() bool {
	return u.EntryActualPrice != nil && *u.EntryActualPrice > 0 && u.EntryTriggeredAt != nil
}

// Store persists trade plans
type Store interface {
	Insert(ctx context.Context, plan *contracts.TradePlan) (int64, error)
	Get(ctx context.Context, id int64) (*contracts.TradePlan, error)
	// List returns plans newest first; an empty status lists all
	List(ctx context.Context, status contracts.PlanStatus) ([]contracts.TradePlan, error)
	UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error
	Delete(ctx context.Context, id int64) error
}
