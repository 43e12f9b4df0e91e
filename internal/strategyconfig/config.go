package strategyconfig

// Config는 TradePilot 운용 정책 전체 설정
// ⭐ SSOT: ETF 목록, lookback, 기본 손절/익절, 모니터 스케줄은 여기서만 정의
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	MarketData MarketData `yaml:"market_data" json:"market_data"`
	Plan       Plan       `yaml:"plan" json:"plan"`
	Monitor    Monitor    `yaml:"monitor" json:"monitor"`
	Sectors    Sectors    `yaml:"sectors" json:"sectors"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// MarketData controls how much history an evaluation pulls
type MarketData struct {
	ETFCodes     []string `yaml:"etf_codes" json:"etf_codes"`
	LookbackDays int      `yaml:"lookback_days" json:"lookback_days"` // calendar days
	FlowDays     int      `yaml:"flow_days" json:"flow_days"`         // fund-flow window, calendar days
}

// Plan 거래계획 기본값
type Plan struct {
	DefaultStopLossPct   float64 `yaml:"default_stop_loss_pct" json:"default_stop_loss_pct"`     // negative, e.g. -10
	DefaultTakeProfitPct float64 `yaml:"default_take_profit_pct" json:"default_take_profit_pct"` // positive, e.g. 30
}

// Monitor 활성 계획 점검 스케줄
type Monitor struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Schedule string `yaml:"schedule" json:"schedule"` // 5-field cron
}

// Sectors maps stock codes to sector names.
// Stocks missing from Membership fall back to the "any high sector" rule.
type Sectors struct {
	Membership map[string]string `yaml:"membership" json:"membership"`
}

// SectorOf returns the configured sector for code, or "" when unmapped
func (c *Config) SectorOf(code string) string {
	if c == nil {
		return ""
	}
	return c.Sectors.Membership[code]
}

// Default returns the built-in policy used when no YAML file is present
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "tradepilot_default",
			Version:    "1",
			Timezone:   "Asia/Shanghai",
		},
		MarketData: MarketData{
			ETFCodes:     []string{"510050", "510300", "510500", "512100"},
			LookbackDays: 365,
			FlowDays:     30,
		},
		Plan: Plan{
			DefaultStopLossPct:   -10,
			DefaultTakeProfitPct: 30,
		},
		Monitor: Monitor{
			Enabled:  true,
			Schedule: "*/30 9-15 * * 1-5",
		},
	}
}
