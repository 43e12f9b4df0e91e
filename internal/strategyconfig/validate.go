package strategyconfig

import (
	"fmt"
	"regexp"
	"time"
	_ "time/tzdata" // containers without zoneinfo

	"github.com/robfig/cron/v3"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Market data ===
	if len(cfg.MarketData.ETFCodes) == 0 {
		return ValidationError{"market_data.etf_codes", "at least one ETF code required"}
	}
	seen := map[string]bool{}
	for i, code := range cfg.MarketData.ETFCodes {
		if !codePattern.MatchString(code) {
			return ValidationError{fmt.Sprintf("market_data.etf_codes[%d]", i), "must be a 6-digit code"}
		}
		if seen[code] {
			return ValidationError{fmt.Sprintf("market_data.etf_codes[%d]", i), "duplicate code " + code}
		}
		seen[code] = true
	}
	if cfg.MarketData.LookbackDays < 30 || cfg.MarketData.LookbackDays > 3650 {
		return ValidationError{"market_data.lookback_days", "must be in [30, 3650]"}
	}
	if cfg.MarketData.FlowDays < 5 || cfg.MarketData.FlowDays > cfg.MarketData.LookbackDays {
		return ValidationError{"market_data.flow_days", "must be in [5, lookback_days]"}
	}

	// === Plan ===
	if cfg.Plan.DefaultStopLossPct >= 0 || cfg.Plan.DefaultStopLossPct <= -100 {
		return ValidationError{"plan.default_stop_loss_pct", "must be in (-100, 0)"}
	}
	if cfg.Plan.DefaultTakeProfitPct <= 0 {
		return ValidationError{"plan.default_take_profit_pct", "must be > 0"}
	}

	// === Monitor ===
	if cfg.Monitor.Enabled {
		if _, err := cron.ParseStandard(cfg.Monitor.Schedule); err != nil {
			return ValidationError{"monitor.schedule", err.Error()}
		}
	}

	// === Sectors ===
	for code, sector := range cfg.Sectors.Membership {
		if !codePattern.MatchString(code) {
			return ValidationError{"sectors.membership", fmt.Sprintf("invalid stock code %q", code)}
		}
		if sector == "" {
			return ValidationError{"sectors.membership." + code, "sector name required"}
		}
	}

	return nil
}

// Warn reports recommended-but-not-required deviations
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 250 거래일 ≈ 365 캘린더일
	if cfg.MarketData.LookbackDays < 365 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_LOOKBACK",
			Message: fmt.Sprintf("lookback_days=%d gives fewer than 250 sessions; valuation percentiles use a shorter window", cfg.MarketData.LookbackDays),
		})
	}
	if len(cfg.Sectors.Membership) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_SECTOR_MEMBERSHIP",
			Message: "sectors.membership empty; any high-position sector flags every stock",
		})
	}
	if !cfg.Monitor.Enabled {
		warnings = append(warnings, Warning{
			Code:    "MONITOR_DISABLED",
			Message: "active plans will not be checked on a schedule",
		})
	}

	return warnings
}
