package portfolio

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepilot/internal/contracts"
)

func validPosition() NewPosition {
	return NewPosition{
		StockCode: "600519",
		StockName: "贵州茅台",
		BuyDate:   time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		BuyPrice:  1500,
		Quantity:  100,
	}
}

func validTrade() NewTrade {
	return NewTrade{
		Date:      time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		StockCode: "600519",
		StockName: "贵州茅台",
		Direction: contracts.TradeBuy,
		Price:     1500,
		Quantity:  100,
	}
}

func TestNewPosition_Validate(t *testing.T) {
	require.NoError(t, validPosition().Validate())

	tests := []struct {
		name   string
		mutate func(*NewPosition)
	}{
		{"short code", func(p *NewPosition) { p.StockCode = "6005" }},
		{"blank name", func(p *NewPosition) { p.StockName = " " }},
		{"no date", func(p *NewPosition) { p.BuyDate = time.Time{} }},
		{"zero price", func(p *NewPosition) { p.BuyPrice = 0 }},
		{"negative quantity", func(p *NewPosition) { p.Quantity = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPosition()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalid)
		})
	}
}

func TestNewTrade_Validate(t *testing.T) {
	require.NoError(t, validTrade().Validate())

	sell := validTrade()
	sell.Direction = contracts.TradeSell
	require.NoError(t, sell.Validate())

	tests := []struct {
		name   string
		mutate func(*NewTrade)
	}{
		{"bad direction", func(tr *NewTrade) { tr.Direction = "hold" }},
		{"no date", func(tr *NewTrade) { tr.Date = time.Time{} }},
		{"zero quantity", func(tr *NewTrade) { tr.Quantity = 0 }},
		{"letters in code", func(tr *NewTrade) { tr.StockCode = "60051A" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validTrade()
			tt.mutate(&tr)
			assert.ErrorIs(t, tr.Validate(), ErrInvalid)
		})
	}
}

func TestRepository_RejectsInvalidBeforeQuery(t *testing.T) {
	// nil db: validation must fail before any query is attempted
	repo := NewRepository(nil)

	bad := validPosition()
	bad.Quantity = 0
	_, err := repo.AddPosition(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalid)

	badTrade := validTrade()
	badTrade.Price = -1
	_, err = repo.AddTrade(context.Background(), badTrade)
	assert.ErrorIs(t, err, ErrInvalid)
}

// Requires a database migrated with migrations/001_tradepilot.sql
func TestRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)

	pos, err := repo.AddPosition(ctx, validPosition())
	require.NoError(t, err)
	assert.Positive(t, pos.ID)

	open, err := repo.ListOpenPositions(ctx)
	require.NoError(t, err)
	assert.Contains(t, open, *pos)

	require.NoError(t, repo.ClosePosition(ctx, pos.ID))
	assert.ErrorIs(t, repo.ClosePosition(ctx, pos.ID), ErrPositionNotFound)

	trade, err := repo.AddTrade(ctx, validTrade())
	require.NoError(t, err)
	trades, err := repo.ListTrades(ctx)
	require.NoError(t, err)
	assert.Contains(t, trades, *trade)
}
