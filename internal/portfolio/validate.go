package portfolio

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wonny/tradepilot/internal/contracts"
)

var (
	// ErrPositionNotFound is returned when no open position has the requested id
	ErrPositionNotFound = errors.New("position not found")
	// ErrInvalid wraps every rejected position or trade payload
	ErrInvalid = errors.New("invalid portfolio request")
)

var stockCode = regexp.MustCompile(`^\d{6}$`)

// NewPosition is the payload of an opened lot
type NewPosition struct {
	StockCode string    `json:"stock_code"`
	StockName string    `json:"stock_name"`
	BuyDate   time.Time `json:"buy_date"`
	BuyPrice  float64   `json:"buy_price"`
	Quantity  int       `json:"quantity"`
}

// NewTrade is the payload of a journal entry
type NewTrade struct {
	Date      time.Time `json:"date"`
	StockCode string    `json:"stock_code"`
	StockName string    `json:"stock_name"`
	Direction string    `json:"direction"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks a new position
func (p NewPosition) Validate() error {
	if !stockCode.MatchString(p.StockCode) {
		return invalid("stock_code %q must be 6 digits", p.StockCode)
	}
	if strings.TrimSpace(p.StockName) == "" {
		return invalid("stock_name required")
	}
	if p.BuyDate.IsZero() {
		return invalid("buy_date required")
	}
	if p.BuyPrice <= 0 {
		return invalid("buy_price must be positive")
	}
	if p.Quantity <= 0 {
		return invalid("quantity must be positive")
	}
	return nil
}

// Validate checks a new trade
func (t NewTrade) Validate() error {
	if !stockCode.MatchString(t.StockCode) {
		return invalid("stock_code %q must be 6 digits", t.StockCode)
	}
	if strings.TrimSpace(t.StockName) == "" {
		return invalid("stock_name required")
	}
	if t.Date.IsZero() {
		return invalid("date required")
	}
	if t.Direction != contracts.TradeBuy && t.Direction != contracts.TradeSell {
		return invalid("direction must be %q or %q", contracts.TradeBuy, contracts.TradeSell)
	}
	if t.Price <= 0 {
		return invalid("price must be positive")
	}
	if t.Quantity <= 0 {
		return invalid("quantity must be positive")
	}
	return nil
}
