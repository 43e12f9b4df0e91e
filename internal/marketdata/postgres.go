package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/tradepilot/internal/contracts"
)

// Querier is the subset of *pgxpool.Pool the postgres provider needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresProvider reads series from the market schema
type PostgresProvider struct {
	db Querier
}

// NewPostgresProvider creates a provider over a pgx pool (or any Querier)
func NewPostgresProvider(db Querier) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (p *PostgresProvider) queryBars(ctx context.Context, table, keyCol, code string, start, end time.Time) ([]contracts.Bar, error) {
	query := fmt.Sprintf(`
		SELECT date, open, high, low, close, volume
		FROM market.%s
		WHERE %s = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`, table, keyCol)

	rows, err := p.db.Query(ctx, query, code, start, end)
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", table, code, err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (p *PostgresProvider) GetStockDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	return p.queryBars(ctx, "stock_daily", "stock_code", code, start, end)
}

func (p *PostgresProvider) GetIndexDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	return p.queryBars(ctx, "index_daily", "index_code", code, start, end)
}

func (p *PostgresProvider) GetETFFlow(ctx context.Context, etfCode string, start, end time.Time) ([]contracts.ETFFlow, error) {
	rows, err := p.db.Query(ctx, `
		SELECT date, etf_code, net_inflow, volume
		FROM market.etf_flow
		WHERE etf_code = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`, etfCode, start, end)
	if err != nil {
		return nil, fmt.Errorf("query etf_flow %s: %w", etfCode, err)
	}
	defer rows.Close()

	var out []contracts.ETFFlow
	for rows.Next() {
		var f contracts.ETFFlow
		if err := rows.Scan(&f.Date, &f.ETFCode, &f.NetInflow, &f.Volume); err != nil {
			return nil, fmt.Errorf("scan etf_flow: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *PostgresProvider) GetMarginData(ctx context.Context, start, end time.Time) ([]contracts.MarginRecord, error) {
	rows, err := p.db.Query(ctx, `
		SELECT date, stock_code, margin_balance, margin_buy
		FROM market.margin_data
		WHERE date BETWEEN $1 AND $2
		ORDER BY date, stock_code`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query margin_data: %w", err)
	}
	defer rows.Close()

	var out []contracts.MarginRecord
	for rows.Next() {
		var m contracts.MarginRecord
		if err := rows.Scan(&m.Date, &m.StockCode, &m.MarginBalance, &m.MarginBuy); err != nil {
			return nil, fmt.Errorf("scan margin_data: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PostgresProvider) GetNorthboundFlow(ctx context.Context, start, end time.Time) ([]contracts.NorthboundFlow, error) {
	rows, err := p.db.Query(ctx, `
		SELECT date, net_buy, buy_amount, sell_amount
		FROM market.northbound_flow
		WHERE date BETWEEN $1 AND $2
		ORDER BY date`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query northbound_flow: %w", err)
	}
	defer rows.Close()

	var out []contracts.NorthboundFlow
	for rows.Next() {
		var n contracts.NorthboundFlow
		if err := rows.Scan(&n.Date, &n.NetBuy, &n.BuyAmount, &n.SellAmount); err != nil {
			return nil, fmt.Errorf("scan northbound_flow: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *PostgresProvider) GetStockValuation(ctx context.Context, code string, start, end time.Time) ([]contracts.ValuationPoint, error) {
	rows, err := p.db.Query(ctx, `
		SELECT date, pe_ttm, pb, ps, market_cap
		FROM market.stock_valuation
		WHERE stock_code = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`, code, start, end)
	if err != nil {
		return nil, fmt.Errorf("query stock_valuation %s: %w", code, err)
	}
	defer rows.Close()

	nan := func(v *float64) float64 {
		if v == nil {
			return math.NaN()
		}
		return *v
	}

	var out []contracts.ValuationPoint
	for rows.Next() {
		var (
			d              time.Time
			pe, pb, ps, mc *float64
		)
		if err := rows.Scan(&d, &pe, &pb, &ps, &mc); err != nil {
			return nil, fmt.Errorf("scan stock_valuation: %w", err)
		}
		out = append(out, contracts.ValuationPoint{Date: d, PETTM: nan(pe), PB: nan(pb), PS: nan(ps), MarketCap: nan(mc)})
	}
	return out, rows.Err()
}

func (p *PostgresProvider) GetSectorData(ctx context.Context, start, end time.Time) ([]contracts.SectorSnapshot, error) {
	rows, err := p.db.Query(ctx, `
		SELECT date, sector, avg_pe, avg_pb, change_1d, change_5d, change_20d, change_60d
		FROM market.sector_data
		WHERE date BETWEEN $1 AND $2
		ORDER BY date, sector`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query sector_data: %w", err)
	}
	defer rows.Close()

	var out []contracts.SectorSnapshot
	for rows.Next() {
		var s contracts.SectorSnapshot
		if err := rows.Scan(&s.Date, &s.Sector, &s.AvgPE, &s.AvgPB, &s.Change1D, &s.Change5D, &s.Change20D, &s.Change60D); err != nil {
			return nil, fmt.Errorf("scan sector_data: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
