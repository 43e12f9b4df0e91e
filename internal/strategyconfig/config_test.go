package strategyconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
meta:
  strategy_id: tradepilot_test
  version: "1"
  timezone: Asia/Shanghai
market_data:
  etf_codes: ["510050", "510300"]
  lookback_days: 400
  flow_days: 30
plan:
  default_stop_loss_pct: -8
  default_take_profit_pct: 25
monitor:
  enabled: true
  schedule: "*/15 9-15 * * 1-5"
sectors:
  membership:
    "600519": 食品饮料
    "000001": 银行
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "tradepilot_test", cfg.Meta.StrategyID)
	assert.Equal(t, []string{"510050", "510300"}, cfg.MarketData.ETFCodes)
	assert.Equal(t, -8.0, cfg.Plan.DefaultStopLossPct)
	assert.Equal(t, 25.0, cfg.Plan.DefaultTakeProfitPct)
	assert.Equal(t, "食品饮料", cfg.SectorOf("600519"))
	assert.Equal(t, "", cfg.SectorOf("300750"))
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(sampleYAML + "extra_knob: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra_knob")
}

func TestLoad_RepoPolicy(t *testing.T) {
	path := "../../config/strategy/tradepilot.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, data, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, -10.0, cfg.Plan.DefaultStopLossPct)
	assert.Equal(t, 30.0, cfg.Plan.DefaultTakeProfitPct)
}

func TestLoadOrDefault_Missing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"no etfs", func(c *Config) { c.MarketData.ETFCodes = nil }, "market_data.etf_codes"},
		{"bad etf code", func(c *Config) { c.MarketData.ETFCodes = []string{"51030"} }, "market_data.etf_codes[0]"},
		{"dup etf code", func(c *Config) { c.MarketData.ETFCodes = []string{"510300", "510300"} }, "market_data.etf_codes[1]"},
		{"short lookback", func(c *Config) { c.MarketData.LookbackDays = 10 }, "market_data.lookback_days"},
		{"flow beyond lookback", func(c *Config) { c.MarketData.FlowDays = 400 }, "market_data.flow_days"},
		{"positive stop", func(c *Config) { c.Plan.DefaultStopLossPct = 5 }, "plan.default_stop_loss_pct"},
		{"zero take", func(c *Config) { c.Plan.DefaultTakeProfitPct = 0 }, "plan.default_take_profit_pct"},
		{"bad cron", func(c *Config) { c.Monitor.Schedule = "every day" }, "monitor.schedule"},
		{"empty sector", func(c *Config) { c.Sectors.Membership = map[string]string{"600519": ""} }, "sectors.membership.600519"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var ve ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidate_DisabledMonitorSkipsCron(t *testing.T) {
	cfg := Default()
	cfg.Monitor.Enabled = false
	cfg.Monitor.Schedule = ""
	assert.NoError(t, Validate(cfg))
}

func TestWarn(t *testing.T) {
	cfg := Default()
	cfg.MarketData.LookbackDays = 200

	codes := map[string]bool{}
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}
	assert.True(t, codes["SHORT_LOOKBACK"])
	assert.True(t, codes["NO_SECTOR_MEMBERSHIP"])
	assert.False(t, codes["MONITOR_DISABLED"])
}

func TestHash(t *testing.T) {
	a, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	b, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb)

	b.Plan.DefaultTakeProfitPct = 26
	hc, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}
