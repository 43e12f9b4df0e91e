// Package portfolio persists held positions and the trade journal.
package portfolio

import (
	"context"
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

// Repository handles portfolio data persistence
// ⭐ SSOT: 보유 포지션/매매일지 저장/조회는 여기서만
type Repository struct {
	db DBTX
}

// NewRepository creates a new portfolio repository
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// ListOpenPositions returns open lots, most recent buy first
func (r *Repository) ListOpenPositions(ctx context.Context) ([]contracts.Position, error) {
	query := `
		SELECT id, stock_code, stock_name, buy_date, buy_price, quantity, status
		FROM trading.positions
		WHERE status = $1
		ORDER BY buy_date DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, contracts.PositionOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make([]contracts.Position, 0)
	for rows.Next() {
		var p contracts.Position
		if err := rows.Scan(&p.ID, &p.StockCode, &p.StockName, &p.BuyDate, &p.BuyPrice, &p.Quantity, &p.Status); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return positions, nil
}

// AddPosition opens a lot and returns it with its id
func (r *Repository) AddPosition(ctx context.Context, in NewPosition) (*contracts.Position, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := contracts.Position{
		StockCode: in.StockCode,
		StockName: in.StockName,
		BuyDate:   in.BuyDate,
		BuyPrice:  in.BuyPrice,
		Quantity:  in.Quantity,
		Status:    contracts.PositionOpen,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO trading.positions (stock_code, stock_name, buy_date, buy_price, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.StockCode, p.StockName, p.BuyDate, p.BuyPrice, p.Quantity, p.Status).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert position: %w", err)
	}
	return &p, nil
}

// ClosePosition marks an open lot closed
func (r *Repository) ClosePosition(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE trading.positions SET status = $1 WHERE id = $2 AND status = $3",
		contracts.PositionClosed, id, contracts.PositionOpen,
	)
	if err != nil {
		return fmt.Errorf("failed to close position %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPositionNotFound
	}
	return nil
}

// ListTrades returns the journal, most recent first
func (r *Repository) ListTrades(ctx context.Context) ([]contracts.Trade, error) {
	query := `
		SELECT id, trade_date, stock_code, stock_name, direction, price, quantity, COALESCE(reason, '')
		FROM trading.trades
		ORDER BY trade_date DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]contracts.Trade, 0)
	for rows.Next() {
		var t contracts.Trade
		if err := rows.Scan(&t.ID, &t.Date, &t.StockCode, &t.StockName, &t.Direction, &t.Price, &t.Quantity, &t.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return trades, nil
}

// AddTrade appends a journal entry
func (r *Repository) AddTrade(ctx context.Context, in NewTrade) (*contracts.Trade, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	t := contracts.Trade{
		Date:      in.Date,
		StockCode: in.StockCode,
		StockName: in.StockName,
		Direction: in.Direction,
		Price:     in.Price,
		Quantity:  in.Quantity,
		Reason:    in.Reason,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO trading.trades (trade_date, stock_code, stock_name, direction, price, quantity, reason)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id
	`, t.Date, t.StockCode, t.StockName, t.Direction, t.Price, t.Quantity, t.Reason).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert trade: %w", err)
	}
	return &t, nil
}
