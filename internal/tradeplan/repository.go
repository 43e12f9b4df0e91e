package tradeplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wonny/tradepilot/internal/contracts"
)

// DBTX is the subset of pgxpool.Pool / pgx.Tx the repository needs
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles trade plan persistence
// ⭐ SSOT: trading.trade_plans 저장/조회는 여기서만
type Repository struct {
	db DBTX
}

// NewRepository creates a new trade plan repository
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

const planColumns = `
	id, stock_code, stock_name,
	entry_target_price, entry_quantity, entry_reason, entry_conditions,
	stop_loss_price, stop_loss_pct, stop_loss_conditions,
	take_profit_price, take_profit_pct, take_profit_conditions,
	risk_reward_ratio, composite_score, signal_summary,
	status, entry_actual_price, entry_triggered_at, created_at`

// Insert stores plan and returns its new id
func (r *Repository) Insert(ctx context.Context, plan *contracts.TradePlan) (int64, error) {
	entry, err := json.Marshal(plan.EntryConditions)
	if err != nil {
		return 0, fmt.Errorf("marshal entry conditions: %w", err)
	}
	stop, err := json.Marshal(plan.StopLossConditions)
	if err != nil {
		return 0, fmt.Errorf("marshal stop-loss conditions: %w", err)
	}
	take, err := json.Marshal(plan.TakeProfitConditions)
	if err != nil {
		return 0, fmt.Errorf("marshal take-profit conditions: %w", err)
	}

	var quantity *int
	if plan.EntryQuantity > 0 {
		quantity = &plan.EntryQuantity
	}

	query := `
		INSERT INTO trading.trade_plans (
			stock_code, stock_name,
			entry_target_price, entry_quantity, entry_reason, entry_conditions,
			stop_loss_price, stop_loss_pct, stop_loss_conditions,
			take_profit_price, take_profit_pct, take_profit_conditions,
			risk_reward_ratio, composite_score, signal_summary, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at
	`

	var id int64
	err = r.db.QueryRow(ctx, query,
		plan.StockCode, plan.StockName,
		plan.EntryTargetPrice, quantity, plan.EntryReason, entry,
		plan.StopLossPrice, plan.StopLossPct, stop,
		plan.TakeProfitPrice, plan.TakeProfitPct, take,
		plan.RiskRewardRatio, plan.CompositeScore, plan.SignalSummary, string(plan.Status),
	).Scan(&id, &plan.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade plan: %w", err)
	}
	plan.ID = id
	return id, nil
}

// Get loads one plan
func (r *Repository) Get(ctx context.Context, id int64) (*contracts.TradePlan, error) {
	row := r.db.QueryRow(ctx, "SELECT "+planColumns+" FROM trading.trade_plans WHERE id = $1", id)
	plan, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade plan %d: %w", id, err)
	}
	return plan, nil
}

// List returns plans ordered by created_at DESC, optionally filtered by status
func (r *Repository) List(ctx context.Context, status contracts.PlanStatus) ([]contracts.TradePlan, error) {
	query := "SELECT " + planColumns + " FROM trading.trade_plans"
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade plans: %w", err)
	}
	defer rows.Close()

	plans := make([]contracts.TradePlan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return plans, nil
}

// UpdateStatus sets the status, and the actual entry when the update records one
func (r *Repository) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if update.RecordsEntry() {
		tag, err = r.db.Exec(ctx,
			"UPDATE trading.trade_plans SET status = $1, entry_actual_price = $2, entry_triggered_at = $3 WHERE id = $4",
			string(update.Status), *update.EntryActualPrice, *update.EntryTriggeredAt, id,
		)
	} else {
		tag, err = r.db.Exec(ctx,
			"UPDATE trading.trade_plans SET status = $1 WHERE id = $2",
			string(update.Status), id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update trade plan %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// Delete removes a plan
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM trading.trade_plans WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete trade plan %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func scanPlan(row pgx.Row) (*contracts.TradePlan, error) {
	var (
		p                 contracts.TradePlan
		quantity          *int
		entryReason       *string
		entry, stop, take []byte
		summary           *string
		status            string
	)
	err := row.Scan(
		&p.ID, &p.StockCode, &p.StockName,
		&p.EntryTargetPrice, &quantity, &entryReason, &entry,
		&p.StopLossPrice, &p.StopLossPct, &stop,
		&p.TakeProfitPrice, &p.TakeProfitPct, &take,
		&p.RiskRewardRatio, &p.CompositeScore, &summary,
		&status, &p.EntryActualPrice, &p.EntryTriggeredAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if quantity != nil {
		p.EntryQuantity = *quantity
	}
	if entryReason != nil {
		p.EntryReason = *entryReason
	}
	if summary != nil {
		p.SignalSummary = *summary
	}
	p.Status = contracts.PlanStatus(status)

	for _, c := range []struct {
		raw []byte
		dst *[]string
	}{{entry, &p.EntryConditions}, {stop, &p.StopLossConditions}, {take, &p.TakeProfitConditions}} {
		*c.dst = []string{}
		if len(c.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(c.raw, c.dst); err != nil {
			return nil, fmt.Errorf("decode conditions: %w", err)
		}
	}
	return &p, nil
}
