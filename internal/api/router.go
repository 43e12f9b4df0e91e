package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/tradepilot/internal/api/handlers"
	"github.com/wonny/tradepilot/pkg/logger"
	"github.com/wonny/tradepilot/pkg/metrics"
)

// Handlers groups every endpoint handler
type Handlers struct {
	Market    *handlers.MarketHandler
	Analysis  *handlers.AnalysisHandler
	Signal    *handlers.SignalHandler
	Portfolio *handlers.PortfolioHandler // nil without a database
	TradePlan *handlers.TradePlanHandler // nil without a database
}

// RouterConfig carries the cross-cutting dependencies of the router
type RouterConfig struct {
	Logger  *logger.Logger
	Metrics *metrics.Registry // nil disables /metrics and request timing
	Limiter *rate.Limiter     // nil disables rate limiting
	Health  func() map[string]interface{}
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(cfg.Health)).Methods("GET")
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	if cfg.Limiter != nil {
		api.Use(rateLimitMiddleware(cfg.Limiter))
	}

	// Market endpoints
	market := api.PathPrefix("/market").Subrouter()
	market.HandleFunc("/stocks", h.Market.ListStocks).Methods("GET")
	market.HandleFunc("/stock_daily", h.Market.StockDaily).Methods("GET")
	market.HandleFunc("/indices", h.Market.ListIndices).Methods("GET")
	market.HandleFunc("/index_daily", h.Market.IndexDaily).Methods("GET")
	market.HandleFunc("/etf_flow", h.Market.ETFFlow).Methods("GET")
	market.HandleFunc("/northbound", h.Market.Northbound).Methods("GET")
	market.HandleFunc("/margin", h.Market.Margin).Methods("GET")
	market.HandleFunc("/valuation", h.Market.Valuation).Methods("GET")
	market.HandleFunc("/sectors", h.Market.Sectors).Methods("GET")

	// Analysis endpoints
	analysis := api.PathPrefix("/analysis").Subrouter()
	analysis.HandleFunc("/technical", h.Analysis.Technical).Methods("GET")
	analysis.HandleFunc("/valuation", h.Analysis.Valuation).Methods("GET")
	analysis.HandleFunc("/fund_flow", h.Analysis.FundFlow).Methods("GET")
	analysis.HandleFunc("/sector_rotation", h.Analysis.SectorRotation).Methods("GET")

	// Signal endpoints
	signal := api.PathPrefix("/signal").Subrouter()
	signal.HandleFunc("/list", h.Signal.List).Methods("GET")
	signal.HandleFunc("/score", h.Signal.Score).Methods("GET")

	// Portfolio endpoints
	if h.Portfolio != nil {
		pf := api.PathPrefix("/portfolio").Subrouter()
		pf.HandleFunc("/positions", h.Portfolio.ListPositions).Methods("GET")
		pf.HandleFunc("/positions", h.Portfolio.AddPosition).Methods("POST")
		pf.HandleFunc("/positions/{id:[0-9]+}", h.Portfolio.ClosePosition).Methods("DELETE")
		pf.HandleFunc("/trades", h.Portfolio.ListTrades).Methods("GET")
		pf.HandleFunc("/trades", h.Portfolio.AddTrade).Methods("POST")
	}

	// Trade plan endpoints
	if h.TradePlan != nil {
		tp := api.PathPrefix("/trade_plan").Subrouter()
		tp.HandleFunc("/evaluate/{code}", h.TradePlan.Evaluate).Methods("GET")
		tp.HandleFunc("/list", h.TradePlan.List).Methods("GET")
		tp.HandleFunc("/create", h.TradePlan.Create).Methods("POST")
		tp.HandleFunc("/{id:[0-9]+}/status", h.TradePlan.UpdateStatus).Methods("PUT")
		tp.HandleFunc("/{id:[0-9]+}/monitor", h.TradePlan.Monitor).Methods("GET")
		tp.HandleFunc("/{id:[0-9]+}", h.TradePlan.Delete).Methods("DELETE")
	}

	// Apply middleware (outermost first)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(cfg.Logger, cfg.Metrics))
	r.Use(recoveryMiddleware(cfg.Logger))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(extra func() map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "tradepilot-api",
		}
		if extra != nil {
			for k, v := range extra() {
				body[k] = v
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}
}

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware propagates or assigns X-Request-ID
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and records their duration
func loggingMiddleware(log *logger.Logger, m *metrics.Registry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if m != nil {
				m.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
			}

			log.WithFields(map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start),
				"request_id": r.Header.Get(requestIDHeader),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error":      err,
						"path":       r.URL.Path,
						"request_id": r.Header.Get(requestIDHeader),
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware rejects requests beyond the shared token bucket
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
