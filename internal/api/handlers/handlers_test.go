package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/marketdata"
	"github.com/wonny/tradepilot/internal/portfolio"
	"github.com/wonny/tradepilot/internal/strategyconfig"
	"github.com/wonny/tradepilot/internal/tradeplan"
	"github.com/wonny/tradepilot/pkg/logger"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC) }

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func marketRouter() http.Handler {
	h := NewMarketHandler(marketdata.NewMockProvider(42), strategyconfig.Default(), logger.NewNop())
	h.now = fixedNow
	r := mux.NewRouter()
	r.HandleFunc("/stocks", h.ListStocks)
	r.HandleFunc("/indices", h.ListIndices)
	r.HandleFunc("/stock_daily", h.StockDaily)
	r.HandleFunc("/valuation", h.Valuation)
	r.HandleFunc("/etf_flow", h.ETFFlow)
	r.HandleFunc("/sectors", h.Sectors)
	return r
}

func TestMarket_Lists(t *testing.T) {
	r := marketRouter()

	rec := do(t, r, "GET", "/stocks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stocks := decode[[]contracts.StockInfo](t, rec)
	assert.Len(t, stocks, len(marketdata.Stocks()))

	rec = do(t, r, "GET", "/indices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]contracts.StockInfo](t, rec), 4)
}

func TestMarket_StockDaily(t *testing.T) {
	r := marketRouter()

	rec := do(t, r, "GET", "/stock_daily?stock_code=600519&start_date=2025-06-02&end_date=2025-06-06", "")
	require.Equal(t, http.StatusOK, rec.Code)
	bars := decode[[]contracts.Bar](t, rec)
	assert.Len(t, bars, 5, "Mon-Fri")

	rec = do(t, r, "GET", "/stock_daily", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "stock_code is required", decode[map[string]string](t, rec)["error"])

	rec = do(t, r, "GET", "/stock_daily?stock_code=600519&start_date=2025/01/01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, "GET", "/stock_daily?stock_code=600519&start_date=2025-07-01&end_date=2025-06-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarket_ValuationEncodes(t *testing.T) {
	rec := do(t, marketRouter(), "GET", "/valuation?stock_code=600519&start_date=2025-01-01&end_date=2025-06-30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]map[string]interface{}](t, rec)
	require.NotEmpty(t, rows)
	assert.Contains(t, rows[0], "pe_ttm")
	assert.Len(t, rows[0]["date"], len("2025-01-01"))
}

func analysisRouter() (http.Handler, *AnalysisHandler) {
	h := NewAnalysisHandler(marketdata.NewMockProvider(42), strategyconfig.Default(), logger.NewNop())
	h.now = fixedNow
	r := mux.NewRouter()
	r.HandleFunc("/technical", h.Technical)
	r.HandleFunc("/valuation", h.Valuation)
	r.HandleFunc("/fund_flow", h.FundFlow)
	r.HandleFunc("/sector_rotation", h.SectorRotation)
	return r, h
}

func TestAnalysis_Technical(t *testing.T) {
	r, _ := analysisRouter()

	rec := do(t, r, "GET", "/technical?stock_code=600519&points=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "daily", resp["period"])
	assert.Len(t, resp["macd"], 30)
	assert.NotNil(t, resp["latest"])

	rec = do(t, r, "GET", "/technical?stock_code=600519&period=weekly", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, r, "GET", "/technical?stock_code=600519&points=-3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysis_FundFlowAndRotation(t *testing.T) {
	r, _ := analysisRouter()

	rec := do(t, r, "GET", "/fund_flow", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ff := decode[FundFlowResponse](t, rec)
	assert.Len(t, ff.ETF, 4)
	assert.GreaterOrEqual(t, ff.Sentiment.Score, 0.0)
	assert.LessOrEqual(t, ff.Sentiment.Score, 100.0)
	assert.NotEmpty(t, ff.Sentiment.Label)

	rec = do(t, r, "GET", "/sector_rotation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rot := decode[map[string]interface{}](t, rec)
	assert.Len(t, rot["sectors"], len(marketdata.Sectors()))

	rec = do(t, r, "GET", "/valuation?stock_code=600519", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[map[string]interface{}](t, rec), "signals")
}

// fakePlans is an in-memory PlanService
type fakePlans struct {
	evalErr   error
	updateErr error
	lastReq   tradeplan.CreateRequest
	lastUpd   tradeplan.StatusUpdate
}

func (f *fakePlans) Evaluate(_ context.Context, code string) (*tradeplan.Evaluation, error) {
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return &tradeplan.Evaluation{StockCode: code, CompositeScore: 65, ScoreLabel: "buy", Reasons: []string{"✓ MACD金叉"}}, nil
}

func (f *fakePlans) Create(_ context.Context, req tradeplan.CreateRequest) (*tradeplan.Created, error) {
	f.lastReq = req
	return &tradeplan.Created{Plan: &contracts.TradePlan{ID: 7, StockCode: req.StockCode}, Evaluation: &tradeplan.Evaluation{}}, nil
}

func (f *fakePlans) List(_ context.Context, status contracts.PlanStatus) ([]contracts.TradePlan, error) {
	if status != "" && !status.Valid() {
		return nil, tradeplan.ErrInvalidRequest
	}
	return []contracts.TradePlan{{ID: 1, Status: contracts.PlanActive}}, nil
}

func (f *fakePlans) UpdateStatus(_ context.Context, _ int64, u tradeplan.StatusUpdate) error {
	f.lastUpd = u
	return f.updateErr
}

func (f *fakePlans) Monitor(_ context.Context, id int64) (*tradeplan.MonitorResult, error) {
	if id == 404 {
		return nil, tradeplan.ErrPlanNotFound
	}
	return &tradeplan.MonitorResult{Plan: &contracts.TradePlan{ID: id}}, nil
}

func (f *fakePlans) Delete(_ context.Context, id int64) error {
	if id == 404 {
		return tradeplan.ErrPlanNotFound
	}
	return nil
}

func planRouter(f *fakePlans) http.Handler {
	h := NewTradePlanHandler(f, logger.NewNop())
	r := mux.NewRouter()
	r.HandleFunc("/evaluate/{code}", h.Evaluate).Methods("GET")
	r.HandleFunc("/list", h.List).Methods("GET")
	r.HandleFunc("/create", h.Create).Methods("POST")
	r.HandleFunc("/{id}/status", h.UpdateStatus).Methods("PUT")
	r.HandleFunc("/{id}/monitor", h.Monitor).Methods("GET")
	r.HandleFunc("/{id}", h.Delete).Methods("DELETE")
	return r
}

func TestTradePlan_Evaluate(t *testing.T) {
	rec := do(t, planRouter(&fakePlans{}), "GET", "/evaluate/600519", "")
	require.Equal(t, http.StatusOK, rec.Code)
	eval := decode[tradeplan.Evaluation](t, rec)
	assert.Equal(t, "600519", eval.StockCode)
	assert.Equal(t, 65.0, eval.CompositeScore)

	rec = do(t, planRouter(&fakePlans{evalErr: tradeplan.ErrNoMarketData}), "GET", "/evaluate/999999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, planRouter(&fakePlans{evalErr: errors.New("pool exhausted")}), "GET", "/evaluate/600519", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to evaluate stock", decode[map[string]string](t, rec)["error"])
}

func TestTradePlan_Create(t *testing.T) {
	f := &fakePlans{}
	rec := do(t, planRouter(f), "POST", "/create", `{"stock_code":"600519","stock_name":"贵州茅台","stop_loss_pct":-8}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "600519", f.lastReq.StockCode)
	require.NotNil(t, f.lastReq.StopLossPct)
	assert.Equal(t, -8.0, *f.lastReq.StopLossPct)
	assert.Nil(t, f.lastReq.TakeProfitPct)

	rec = do(t, planRouter(f), "POST", "/create", `{"stock_code":"600519","bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradePlan_StatusMonitorDelete(t *testing.T) {
	f := &fakePlans{}
	r := planRouter(f)

	rec := do(t, r, "PUT", "/3/status", `{"status":"active","entry_actual_price":10.5,"entry_triggered_at":"2025-06-02"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contracts.PlanActive, f.lastUpd.Status)
	require.NotNil(t, f.lastUpd.EntryTriggeredAt)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), *f.lastUpd.EntryTriggeredAt)

	rec = do(t, r, "PUT", "/abc/status", `{"status":"active"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.updateErr = tradeplan.ErrPlanNotFound
	rec = do(t, r, "PUT", "/3/status", `{"status":"closed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, "GET", "/3/monitor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	mon := decode[map[string]interface{}](t, rec)
	assert.Nil(t, mon["stop_loss"])

	assert.Equal(t, http.StatusNotFound, do(t, r, "GET", "/404/monitor", "").Code)
	assert.Equal(t, http.StatusOK, do(t, r, "DELETE", "/3", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, "DELETE", "/404", "").Code)

	rec = do(t, r, "GET", "/list?status=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, r, "GET", "/list?status=active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]contracts.TradePlan](t, rec), 1)
}

// fakePortfolio validates like the real repository and keeps rows in memory
type fakePortfolio struct {
	positions []contracts.Position
	trades    []contracts.Trade
}

func (f *fakePortfolio) ListOpenPositions(context.Context) ([]contracts.Position, error) {
	out := []contracts.Position{}
	for _, p := range f.positions {
		if p.Status == contracts.PositionOpen {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePortfolio) AddPosition(_ context.Context, in portfolio.NewPosition) (*contracts.Position, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := contracts.Position{ID: int64(len(f.positions) + 1), StockCode: in.StockCode, StockName: in.StockName,
		BuyDate: in.BuyDate, BuyPrice: in.BuyPrice, Quantity: in.Quantity, Status: contracts.PositionOpen}
	f.positions = append(f.positions, p)
	return &p, nil
}

func (f *fakePortfolio) ClosePosition(_ context.Context, id int64) error {
	for i := range f.positions {
		if f.positions[i].ID == id && f.positions[i].Status == contracts.PositionOpen {
			f.positions[i].Status = contracts.PositionClosed
			return nil
		}
	}
	return portfolio.ErrPositionNotFound
}

func (f *fakePortfolio) ListTrades(context.Context) ([]contracts.Trade, error) {
	return append([]contracts.Trade{}, f.trades...), nil
}

func (f *fakePortfolio) AddTrade(_ context.Context, in portfolio.NewTrade) (*contracts.Trade, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	tr := contracts.Trade{ID: int64(len(f.trades) + 1), Date: in.Date, StockCode: in.StockCode, StockName: in.StockName,
		Direction: in.Direction, Price: in.Price, Quantity: in.Quantity, Reason: in.Reason}
	f.trades = append(f.trades, tr)
	return &tr, nil
}

func TestPortfolio(t *testing.T) {
	h := NewPortfolioHandler(&fakePortfolio{}, logger.NewNop())
	r := mux.NewRouter()
	r.HandleFunc("/positions", h.ListPositions).Methods("GET")
	r.HandleFunc("/positions", h.AddPosition).Methods("POST")
	r.HandleFunc("/positions/{id}", h.ClosePosition).Methods("DELETE")
	r.HandleFunc("/trades", h.ListTrades).Methods("GET")
	r.HandleFunc("/trades", h.AddTrade).Methods("POST")

	rec := do(t, r, "POST", "/positions", `{"stock_code":"600519","stock_name":"贵州茅台","buy_date":"2025-03-03","buy_price":1500,"quantity":100}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	pos := decode[contracts.Position](t, rec)
	assert.Equal(t, int64(1), pos.ID)
	assert.Equal(t, contracts.PositionOpen, pos.Status)

	rec = do(t, r, "POST", "/positions", `{"stock_code":"600519","stock_name":"贵州茅台","buy_date":"2025-03-03","buy_price":0,"quantity":100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, "POST", "/positions", `{"stock_code":"600519","buy_date":"March 3"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, "GET", "/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]contracts.Position](t, rec), 1)

	assert.Equal(t, http.StatusOK, do(t, r, "DELETE", "/positions/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, "DELETE", "/positions/1", "").Code)
	assert.Empty(t, decode[[]contracts.Position](t, do(t, r, "GET", "/positions", "")))

	rec = do(t, r, "POST", "/trades", `{"date":"2025-03-03","stock_code":"600519","stock_name":"贵州茅台","direction":"buy","price":1500,"quantity":100,"reason":"突破"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, r, "POST", "/trades", `{"date":"2025-03-03","stock_code":"600519","stock_name":"贵州茅台","direction":"short","price":1500,"quantity":100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	trades := decode[[]contracts.Trade](t, do(t, r, "GET", "/trades", ""))
	require.Len(t, trades, 1)
	assert.Equal(t, "突破", trades[0].Reason)
}

func TestSignal(t *testing.T) {
	analysis := NewAnalysisHandler(marketdata.NewMockProvider(42), strategyconfig.Default(), logger.NewNop())
	analysis.now = fixedNow
	h := NewSignalHandler(&fakePlans{}, analysis, logger.NewNop())
	r := mux.NewRouter()
	r.HandleFunc("/list", h.List)
	r.HandleFunc("/score", h.Score)

	rec := do(t, r, "GET", "/list?stock_code=600519", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[SignalListResponse](t, rec)
	assert.Equal(t, "600519", list.StockCode)
	assert.NotNil(t, list.Technical)
	assert.NotNil(t, list.Valuation)

	rec = do(t, r, "GET", "/score?stock_code=600519", "")
	require.Equal(t, http.StatusOK, rec.Code)
	score := decode[map[string]interface{}](t, rec)
	assert.Equal(t, 65.0, score["score"])
	assert.Equal(t, "buy", score["label"])

	assert.Equal(t, http.StatusBadRequest, do(t, r, "GET", "/score", "").Code)
}

func TestDate_UnmarshalJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2025-06-02"`), &d))
	assert.Equal(t, 2025, d.Year())
	require.NoError(t, json.Unmarshal([]byte(`"2025-06-02T09:30:00+08:00"`), &d))
	assert.Equal(t, 9, d.Hour())
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &d))
}
