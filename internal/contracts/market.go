package contracts

import (
	"errors"
	"time"
)

// ErrUnorderedSeries is returned when a series is not strictly increasing by date
var ErrUnorderedSeries = errors.New("series dates are not strictly increasing")

// Bar is one daily OHLCV row of a stock or index
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ValidateBars checks that dates are strictly increasing
func ValidateBars(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return ErrUnorderedSeries
		}
	}
	return nil
}

// Closes extracts the close column
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// ValuationPoint is one day of valuation multiples. NaN means missing.
type ValuationPoint struct {
	Date      time.Time `json:"date"`
	PETTM     float64   `json:"pe_ttm"`
	PB        float64   `json:"pb"`
	PS        float64   `json:"ps"`
	MarketCap float64   `json:"market_cap"`
}

// ETFFlow is the daily net subscription of one tracked ETF
type ETFFlow struct {
	Date      time.Time `json:"date"`
	ETFCode   string    `json:"etf_code"`
	NetInflow float64   `json:"net_inflow"`
	Volume    float64   `json:"volume"`
}

// NorthboundFlow is the daily cross-border (Stock Connect) net buy
type NorthboundFlow struct {
	Date       time.Time `json:"date"`
	NetBuy     float64   `json:"net_buy"`
	BuyAmount  float64   `json:"buy_amount"`
	SellAmount float64   `json:"sell_amount"`
}

// MarginRecord is one stock's margin financing balance on a date
type MarginRecord struct {
	Date          time.Time `json:"date"`
	StockCode     string    `json:"stock_code"`
	MarginBalance float64   `json:"margin_balance"`
	MarginBuy     float64   `json:"margin_buy"`
}

// SectorSnapshot is one sector's aggregate metrics on a date
type SectorSnapshot struct {
	Date      time.Time `json:"date"`
	Sector    string    `json:"sector"`
	AvgPE     float64   `json:"avg_pe"`
	AvgPB     float64   `json:"avg_pb"`
	Change1D  float64   `json:"change_1d"`
	Change5D  float64   `json:"change_5d"`
	Change20D float64   `json:"change_20d"`
	Change60D float64   `json:"change_60d"`
}

// StockInfo is a static universe entry
type StockInfo struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
}
