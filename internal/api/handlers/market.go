package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/marketdata"
	"github.com/wonny/tradepilot/internal/strategyconfig"
	"github.com/wonny/tradepilot/pkg/logger"
)

// MarketHandler serves raw provider series
// ⭐ SSOT: /api/market 핸들러는 이 구조체에서만
type MarketHandler struct {
	provider contracts.MarketDataProvider
	policy   *strategyconfig.Config
	logger   *logger.Logger
	now      func() time.Time
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(provider contracts.MarketDataProvider, policy *strategyconfig.Config, log *logger.Logger) *MarketHandler {
	return &MarketHandler{provider: provider, policy: policy, logger: log, now: time.Now}
}

// ListStocks returns the stock universe with configured sectors
// GET /api/market/stocks
func (h *MarketHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	stocks := marketdata.Stocks()
	for i := range stocks {
		stocks[i].Sector = h.policy.SectorOf(stocks[i].Code)
	}
	respondJSON(w, http.StatusOK, stocks)
}

// ListIndices returns the index universe
// GET /api/market/indices
func (h *MarketHandler) ListIndices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, marketdata.Indices())
}

// StockDaily returns daily bars
// GET /api/market/stock_daily?stock_code=600519&start_date=2025-01-01&end_date=2025-06-30
func (h *MarketHandler) StockDaily(w http.ResponseWriter, r *http.Request) {
	code, ok := requireQuery(w, r, "stock_code")
	if !ok {
		return
	}
	h.serve(w, r, "stock_daily", func(start, end time.Time) (interface{}, error) {
		return h.provider.GetStockDaily(r.Context(), code, start, end)
	})
}

// IndexDaily returns daily index bars
// GET /api/market/index_daily?index_code=000001
func (h *MarketHandler) IndexDaily(w http.ResponseWriter, r *http.Request) {
	code, ok := requireQuery(w, r, "index_code")
	if !ok {
		return
	}
	h.serve(w, r, "index_daily", func(start, end time.Time) (interface{}, error) {
		return h.provider.GetIndexDaily(r.Context(), code, start, end)
	})
}

// ETFFlow returns one ETF's daily net inflow
// GET /api/market/etf_flow?etf_code=510300
func (h *MarketHandler) ETFFlow(w http.ResponseWriter, r *http.Request) {
	code, ok := requireQuery(w, r, "etf_code")
	if !ok {
		return
	}
	h.serve(w, r, "etf_flow", func(start, end time.Time) (interface{}, error) {
		return h.provider.GetETFFlow(r.Context(), code, start, end)
	})
}

// Northbound returns northbound net buying
// GET /api/market/northbound
func (h *MarketHandler) Northbound(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "northbound", func(start, end time.Time) (interface{}, error) {
		return h.provider.GetNorthboundFlow(r.Context(), start, end)
	})
}

// Margin returns per-stock margin balances
// GET /api/market/margin
func (h *MarketHandler) Margin(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "margin", func(start, end time.Time) (interface{}, error) {
		return h.provider.GetMarginData(r.Context(), start, end)
	})
}

// valuationRow is a ValuationPoint with missing multiples as null
type valuationRow struct {
	Date      string   `json:"date"`
	PETTM     *float64 `json:"pe_ttm"`
	PB        *float64 `json:"pb"`
	PS        *float64 `json:"ps"`
	MarketCap *float64 `json:"market_cap"`
}

// Valuation returns daily valuation multiples
// GET /api/market/valuation?stock_code=600519
func (h *MarketHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	code, ok := requireQuery(w, r, "stock_code")
	if !ok {
		return
	}
	h.serve(w, r, "valuation", func(start, end time.Time) (interface{}, error) {
		points, err := h.provider.GetStockValuation(r.Context(), code, start, end)
		if err != nil {
			return nil, err
		}
		rows := make([]valuationRow, len(points))
		for i, p := range points {
			rows[i] = valuationRow{
				Date:      p.Date.Format(dateLayout),
				PETTM:     finite(p.PETTM),
				PB:        finite(p.PB),
				PS:        finite(p.PS),
				MarketCap: finite(p.MarketCap),
			}
		}
		return rows, nil
	})
}

// Sectors returns sector snapshots
// GET /api/market/sectors
func (h *MarketHandler) Sectors(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "sectors", func(start, end time.Time) (interface{}, error) {
		return h.provider.GetSectorData(r.Context(), start, end)
	})
}

func (h *MarketHandler) serve(w http.ResponseWriter, r *http.Request, series string, fetch func(start, end time.Time) (interface{}, error)) {
	start, end, err := dateRange(r, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := fetch(start, end)
	if err != nil {
		h.logger.WithError(err).WithField("series", series).Error("Failed to fetch market data")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve "+series)
		return
	}
	respondJSON(w, http.StatusOK, data)
}
