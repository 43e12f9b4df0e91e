package contracts

import "time"

// Position statuses
const (
	PositionOpen   = "open"
	PositionClosed = "closed"
)

// Position is a held lot
type Position struct {
	ID        int64     `json:"id"`
	StockCode string    `json:"stock_code"`
	StockName string    `json:"stock_name"`
	BuyDate   time.Time `json:"buy_date"`
	BuyPrice  float64   `json:"buy_price"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
}

// Trade directions
const (
	TradeBuy  = "buy"
	TradeSell = "sell"
)

// Trade is a journal entry
type Trade struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	StockCode string    `json:"stock_code"`
	StockName string    `json:"stock_name"`
	Direction string    `json:"direction"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
}

// PlanStatus is the trade plan lifecycle state
type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanActive    PlanStatus = "active"
	PlanClosed    PlanStatus = "closed"
	PlanCancelled PlanStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanDraft, PlanActive, PlanClosed, PlanCancelled:
		return true
	}
	return false
}

// TradePlan is a persisted entry/exit plan for one stock
type TradePlan struct {
	ID                   int64      `json:"id"`
	StockCode            string     `json:"stock_code"`
	StockName            string     `json:"stock_name"`
	EntryTargetPrice     float64    `json:"entry_target_price"`
	EntryQuantity        int        `json:"entry_quantity"`
	EntryReason          string     `json:"entry_reason"`
	EntryConditions      []string   `json:"entry_conditions"`
	StopLossPrice        float64    `json:"stop_loss_price"`
	StopLossPct          float64    `json:"stop_loss_pct"`
	StopLossConditions   []string   `json:"stop_loss_conditions"`
	TakeProfitPrice      float64    `json:"take_profit_price"`
	TakeProfitPct        float64    `json:"take_profit_pct"`
	TakeProfitConditions []string   `json:"take_profit_conditions"`
	RiskRewardRatio      *float64   `json:"risk_reward_ratio"`
	CompositeScore       float64    `json:"composite_score"`
	SignalSummary        string     `json:"signal_summary"`
	Status               PlanStatus `json:"status"`
	EntryActualPrice     *float64   `json:"entry_actual_price"`
	EntryTriggeredAt     *time.Time `json:"entry_triggered_at"`
	CreatedAt            time.Time  `json:"created_at"`
}
