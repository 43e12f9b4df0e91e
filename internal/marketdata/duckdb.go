package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"

	"github.com/wonny/tradepilot/internal/contracts"
)

// DuckDBProvider reads series from a local DuckDB analytics file
// (stock_daily, index_daily, etf_flow, margin_data, northbound_flow,
// stock_valuation, sector_data).
type DuckDBProvider struct {
	db *sqlx.DB
}

// OpenDuckDB opens the DuckDB file at path read-only
func OpenDuckDB(path string) (*DuckDBProvider, error) {
	db, err := sqlx.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	return NewDuckDBProvider(db), nil
}

// NewDuckDBProvider wraps an existing connection
func NewDuckDBProvider(db *sqlx.DB) *DuckDBProvider {
	return &DuckDBProvider{db: db}
}

// Close closes the underlying connection
func (p *DuckDBProvider) Close() error {
	return p.db.Close()
}

type barRow struct {
	Date   time.Time `db:"date"`
	Open   float64   `db:"open"`
	High   float64   `db:"high"`
	Low    float64   `db:"low"`
	Close  float64   `db:"close"`
	Volume int64     `db:"volume"`
}

func (r barRow) bar() contracts.Bar {
	return contracts.Bar{Date: r.Date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
}

type valuationRow struct {
	Date      time.Time       `db:"date"`
	PETTM     sql.NullFloat64 `db:"pe_ttm"`
	PB        sql.NullFloat64 `db:"pb"`
	PS        sql.NullFloat64 `db:"ps"`
	MarketCap sql.NullFloat64 `db:"market_cap"`
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

const (
	duckStockDaily = `SELECT date, open, high, low, close, volume FROM stock_daily
WHERE stock_code = ? AND date BETWEEN ? AND ? ORDER BY date`
	duckIndexDaily = `SELECT date, open, high, low, close, volume FROM index_daily
WHERE index_code = ? AND date BETWEEN ? AND ? ORDER BY date`
	duckETFFlow = `SELECT date, etf_code, net_inflow, volume FROM etf_flow
WHERE etf_code = ? AND date BETWEEN ? AND ? ORDER BY date`
	duckMargin = `SELECT date, stock_code, margin_balance, margin_buy FROM margin_data
WHERE date BETWEEN ? AND ? ORDER BY date, stock_code`
	duckNorthbound = `SELECT date, net_buy, buy_amount, sell_amount FROM northbound_flow
WHERE date BETWEEN ? AND ? ORDER BY date`
	duckValuation = `SELECT date, pe_ttm, pb, ps, market_cap FROM stock_valuation
WHERE stock_code = ? AND date BETWEEN ? AND ? ORDER BY date`
	duckSector = `SELECT date, sector, avg_pe, avg_pb, change_1d, change_5d, change_20d, change_60d FROM sector_data
WHERE date BETWEEN ? AND ? ORDER BY date, sector`
)

func (p *DuckDBProvider) bars(ctx context.Context, query, code string, start, end time.Time) ([]contracts.Bar, error) {
	var rows []barRow
	if err := p.db.SelectContext(ctx, &rows, query, code, start, end); err != nil {
		return nil, err
	}
	out := make([]contracts.Bar, len(rows))
	for i, r := range rows {
		out[i] = r.bar()
	}
	return out, nil
}

func (p *DuckDBProvider) GetStockDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	bars, err := p.bars(ctx, duckStockDaily, code, start, end)
	if err != nil {
		return nil, fmt.Errorf("duckdb stock_daily %s: %w", code, err)
	}
	return bars, nil
}

func (p *DuckDBProvider) GetIndexDaily(ctx context.Context, code string, start, end time.Time) ([]contracts.Bar, error) {
	bars, err := p.bars(ctx, duckIndexDaily, code, start, end)
	if err != nil {
		return nil, fmt.Errorf("duckdb index_daily %s: %w", code, err)
	}
	return bars, nil
}

func (p *DuckDBProvider) GetETFFlow(ctx context.Context, etfCode string, start, end time.Time) ([]contracts.ETFFlow, error) {
	var rows []struct {
		Date      time.Time `db:"date"`
		ETFCode   string    `db:"etf_code"`
		NetInflow float64   `db:"net_inflow"`
		Volume    float64   `db:"volume"`
	}
	if err := p.db.SelectContext(ctx, &rows, duckETFFlow, etfCode, start, end); err != nil {
		return nil, fmt.Errorf("duckdb etf_flow %s: %w", etfCode, err)
	}
	out := make([]contracts.ETFFlow, len(rows))
	for i, r := range rows {
		out[i] = contracts.ETFFlow{Date: r.Date, ETFCode: r.ETFCode, NetInflow: r.NetInflow, Volume: r.Volume}
	}
	return out, nil
}

func (p *DuckDBProvider) GetMarginData(ctx context.Context, start, end time.Time) ([]contracts.MarginRecord, error) {
	var rows []struct {
		Date          time.Time `db:"date"`
		StockCode     string    `db:"stock_code"`
		MarginBalance float64   `db:"margin_balance"`
		MarginBuy     float64   `db:"margin_buy"`
	}
	if err := p.db.SelectContext(ctx, &rows, duckMargin, start, end); err != nil {
		return nil, fmt.Errorf("duckdb margin_data: %w", err)
	}
	out := make([]contracts.MarginRecord, len(rows))
	for i, r := range rows {
		out[i] = contracts.MarginRecord{Date: r.Date, StockCode: r.StockCode, MarginBalance: r.MarginBalance, MarginBuy: r.MarginBuy}
	}
	return out, nil
}

func (p *DuckDBProvider) GetNorthboundFlow(ctx context.Context, start, end time.Time) ([]contracts.NorthboundFlow, error) {
	var rows []struct {
		Date       time.Time `db:"date"`
		NetBuy     float64   `db:"net_buy"`
		BuyAmount  float64   `db:"buy_amount"`
		SellAmount float64   `db:"sell_amount"`
	}
	if err := p.db.SelectContext(ctx, &rows, duckNorthbound, start, end); err != nil {
		return nil, fmt.Errorf("duckdb northbound_flow: %w", err)
	}
	out := make([]contracts.NorthboundFlow, len(rows))
	for i, r := range rows {
		out[i] = contracts.NorthboundFlow{Date: r.Date, NetBuy: r.NetBuy, BuyAmount: r.BuyAmount, SellAmount: r.SellAmount}
	}
	return out, nil
}

func (p *DuckDBProvider) GetStockValuation(ctx context.Context, code string, start, end time.Time) ([]contracts.ValuationPoint, error) {
	var rows []valuationRow
	if err := p.db.SelectContext(ctx, &rows, duckValuation, code, start, end); err != nil {
		return nil, fmt.Errorf("duckdb stock_valuation %s: %w", code, err)
	}
	out := make([]contracts.ValuationPoint, len(rows))
	for i, r := range rows {
		out[i] = contracts.ValuationPoint{
			Date:      r.Date,
			PETTM:     orNaN(r.PETTM),
			PB:        orNaN(r.PB),
			PS:        orNaN(r.PS),
			MarketCap: orNaN(r.MarketCap),
		}
	}
	return out, nil
}

func (p *DuckDBProvider) GetSectorData(ctx context.Context, start, end time.Time) ([]contracts.SectorSnapshot, error) {
	var rows []struct {
		Date      time.Time `db:"date"`
		Sector    string    `db:"sector"`
		AvgPE     float64   `db:"avg_pe"`
		AvgPB     float64   `db:"avg_pb"`
		Change1D  float64   `db:"change_1d"`
		Change5D  float64   `db:"change_5d"`
		Change20D float64   `db:"change_20d"`
		Change60D float64   `db:"change_60d"`
	}
	if err := p.db.SelectContext(ctx, &rows, duckSector, start, end); err != nil {
		return nil, fmt.Errorf("duckdb sector_data: %w", err)
	}
	out := make([]contracts.SectorSnapshot, len(rows))
	for i, r := range rows {
		out[i] = contracts.SectorSnapshot{
			Date: r.Date, Sector: r.Sector, AvgPE: r.AvgPE, AvgPB: r.AvgPB,
			Change1D: r.Change1D, Change5D: r.Change5D, Change20D: r.Change20D, Change60D: r.Change60D,
		}
	}
	return out, nil
}
