// Package handlers implements the HTTP handlers of the tradepilot API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/portfolio"
	"github.com/wonny/tradepilot/internal/tradeplan"
)

const (
	dateLayout      = "2006-01-02"
	defaultLookback = 365 // days
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func respondOK(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps domain sentinels to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, tradeplan.ErrPlanNotFound),
		errors.Is(err, portfolio.ErrPositionNotFound),
		errors.Is(err, tradeplan.ErrNoMarketData):
		return http.StatusNotFound
	case errors.Is(err, tradeplan.ErrInvalidRequest),
		errors.Is(err, portfolio.ErrInvalid),
		errors.Is(err, contracts.ErrUnorderedSeries):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides internal errors behind a generic message
func clientMessage(err error, fallback string) string {
	if statusFor(err) == http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}

// dateRange reads start_date/end_date (YYYY-MM-DD).
// end defaults to today, start to end minus one year.
func dateRange(r *http.Request, now time.Time) (start, end time.Time, err error) {
	q := r.URL.Query()
	end = now.UTC().Truncate(24 * time.Hour)
	if s := q.Get("end_date"); s != "" {
		if end, err = time.Parse(dateLayout, s); err != nil {
			return start, end, fmt.Errorf("invalid end_date %q", s)
		}
	}
	start = end.AddDate(0, 0, -defaultLookback)
	if s := q.Get("start_date"); s != "" {
		if start, err = time.Parse(dateLayout, s); err != nil {
			return start, end, fmt.Errorf("invalid start_date %q", s)
		}
	}
	if start.After(end) {
		return start, end, fmt.Errorf("start_date after end_date")
	}
	return start, end, nil
}

func requireQuery(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		respondError(w, http.StatusBadRequest, key+" is required")
		return "", false
	}
	return v, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// finite turns NaN/Inf into nil so the value survives JSON encoding
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Date is a calendar date carried as YYYY-MM-DD in JSON bodies
type Date struct{ time.Time }

// UnmarshalJSON accepts "YYYY-MM-DD" or RFC 3339
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	d.Time = t
	return nil
}
