package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wonny/tradepilot/internal/api/handlers"
	"github.com/wonny/tradepilot/internal/marketdata"
	"github.com/wonny/tradepilot/internal/strategyconfig"
	"github.com/wonny/tradepilot/pkg/logger"
	"github.com/wonny/tradepilot/pkg/metrics"
)

func testHandlers() Handlers {
	provider := marketdata.NewMockProvider(42)
	policy := strategyconfig.Default()
	log := logger.NewNop()
	analysis := handlers.NewAnalysisHandler(provider, policy, log)
	return Handlers{
		Market:   handlers.NewMarketHandler(provider, policy, log),
		Analysis: analysis,
		Signal:   handlers.NewSignalHandler(nil, analysis, log),
	}
}

func get(h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	r := NewRouter(testHandlers(), RouterConfig{
		Logger: logger.NewNop(),
		Health: func() map[string]interface{} { return map[string]interface{}{"source": "mock"} },
	})

	rec := get(r, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"mock"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = get(r, "/health", map[string]string{"X-Request-ID": "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRouter_MarketRoutes(t *testing.T) {
	r := NewRouter(testHandlers(), RouterConfig{Logger: logger.NewNop()})

	assert.Equal(t, http.StatusOK, get(r, "/api/market/stocks", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/market/northbound?start_date=2025-06-02&end_date=2025-06-06", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/analysis/sector_rotation", nil).Code)
}

func TestRouter_WithoutDatabaseOmitsPlanRoutes(t *testing.T) {
	r := NewRouter(testHandlers(), RouterConfig{Logger: logger.NewNop()})

	assert.Equal(t, http.StatusNotFound, get(r, "/api/trade_plan/list", nil).Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/portfolio/positions", nil).Code)
}

func TestRouter_Metrics(t *testing.T) {
	m := metrics.New()
	r := NewRouter(testHandlers(), RouterConfig{Logger: logger.NewNop(), Metrics: m})

	require.Equal(t, http.StatusOK, get(r, "/api/market/indices", nil).Code)

	rec := get(r, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "tradepilot_http_request_duration_seconds"))
	assert.Contains(t, body, `route="/api/market/indices"`)
}

func TestRouter_RateLimit(t *testing.T) {
	r := NewRouter(testHandlers(), RouterConfig{
		Logger:  logger.NewNop(),
		Limiter: rate.NewLimiter(rate.Limit(0.001), 1),
	})

	assert.Equal(t, http.StatusOK, get(r, "/api/market/indices", nil).Code)
	rec := get(r, "/api/market/indices", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// health is outside /api
	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := get(h, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
