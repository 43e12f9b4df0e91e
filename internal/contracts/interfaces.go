package contracts

import (
	"context"
	"time"
)

// MarketDataProvider is the read-only source of every raw series.
// Series are sorted by date ascending (multi-key series by date, then key).
// ⭐ SSOT: 엔진은 구체 소스를 모름
type MarketDataProvider interface {
	GetStockDaily(ctx context.Context, code string, start, end time.Time) ([]Bar, error)
	GetIndexDaily(ctx context.Context, code string, start, end time.Time) ([]Bar, error)
	GetETFFlow(ctx context.Context, etfCode string, start, end time.Time) ([]ETFFlow, error)
	GetMarginData(ctx context.Context, start, end time.Time) ([]MarginRecord, error)
	GetNorthboundFlow(ctx context.Context, start, end time.Time) ([]NorthboundFlow, error)
	GetStockValuation(ctx context.Context, code string, start, end time.Time) ([]ValuationPoint, error)
	GetSectorData(ctx context.Context, start, end time.Time) ([]SectorSnapshot, error)
}
