package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepilot/internal/strategyconfig"
)

// configCmd groups strategy config tooling
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Strategy config tools",
}

var configCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Validate a strategy YAML and print its hash and warnings",
	Long: `Validate a strategy YAML without starting anything.

Example:
  go run ./cmd/tradepilot config check
  go run ./cmd/tradepilot config check config/strategy/tradepilot.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	path := "config/strategy/tradepilot.yaml"
	if strategyFile != "" {
		path = strategyFile
	}
	if len(args) == 1 {
		path = args[0]
	}

	cfg, _, err := strategyconfig.Load(path)
	if err != nil {
		return err
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("=== %s ===\n", path)
	fmt.Printf("Strategy:  %s v%s\n", cfg.Meta.StrategyID, cfg.Meta.Version)
	fmt.Printf("Hash:      %s\n", hash)
	fmt.Printf("ETFs:      %v\n", cfg.MarketData.ETFCodes)
	fmt.Printf("Lookback:  %dd (flow %dd)\n", cfg.MarketData.LookbackDays, cfg.MarketData.FlowDays)
	fmt.Printf("Exits:     stop %.1f%% / take %.1f%%\n", cfg.Plan.DefaultStopLossPct, cfg.Plan.DefaultTakeProfitPct)
	fmt.Printf("Sectors:   %d mapped stocks\n", len(cfg.Sectors.Membership))

	warnings := strategyconfig.Warn(cfg)
	for _, w := range warnings {
		fmt.Printf("WARN [%s] %s\n", w.Code, w.Message)
	}
	if len(warnings) == 0 {
		fmt.Println("OK")
	}
	return nil
}
