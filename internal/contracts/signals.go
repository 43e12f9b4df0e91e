package contracts

import "time"

// SignalKind enumerates every signal the engines can emit
type SignalKind string

const (
	GoldenCross      SignalKind = "golden_cross"
	DeathCross       SignalKind = "death_cross"
	BullDivergence   SignalKind = "bull_divergence"
	BearDivergence   SignalKind = "bear_divergence"
	VolumeBreakout   SignalKind = "volume_breakout"
	HighShrink       SignalKind = "high_shrink"
	ExtremeLowVolume SignalKind = "extreme_low_volume"
	LowPE            SignalKind = "low_pe"
	LowPB            SignalKind = "low_pb"
	HighRRR          SignalKind = "high_rrr"
	HighPE           SignalKind = "high_pe"
	HighPB           SignalKind = "high_pb"
)

// Direction of a valuation signal
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Signal is a dated technical event
type Signal struct {
	Date time.Time  `json:"date"`
	Kind SignalKind `json:"type"`
	Name string     `json:"name"`
}

// ValuationSignal is an undated valuation verdict
type ValuationSignal struct {
	Kind      SignalKind `json:"type"`
	Name      string     `json:"name"`
	Direction Direction  `json:"direction"`
}

// Sentiment is the 0-100 market fund-flow temperature
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// Sentiment labels
const (
	SentimentOverheated = "overheated"
	SentimentHot        = "hot"
	SentimentNeutral    = "neutral"
	SentimentCold       = "cold"
)

// SectorPosition places a stock's sector in the rotation cycle
type SectorPosition string

const (
	SectorHigh SectorPosition = "high"
	SectorLow  SectorPosition = "low"
	SectorNone SectorPosition = ""
)

// CompositeResult is the 0-100 buy/sell score with its reasons
type CompositeResult struct {
	Score   float64  `json:"score"`
	Label   string   `json:"label"`
	Reasons []string `json:"reasons"`
}

// ExitCondition is one evaluated exit trigger
type ExitCondition struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Triggered bool   `json:"triggered"`
}

// RiskDecision is the outcome of a stop-loss or take-profit evaluation
type RiskDecision struct {
	Triggered  bool            `json:"triggered"`
	Conditions []ExitCondition `json:"conditions"`
	PnLPct     float64         `json:"pnl_pct"`
}
