package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	source       string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tradepilot",
	Short: "TradePilot - A股 신호 분석 및 거래계획",
	Long: `TradePilot CLI

기술적 지표(MACD/背离/量能), 估值分位, 资金面 sentiment, 板块轮动을
하나의 0-100 점수로 합성하고 거래계획의 손절/익절을 감시합니다.

Usage:
  go run ./cmd/tradepilot [command]

Examples:
  go run ./cmd/tradepilot api
  go run ./cmd/tradepilot evaluate 600519
  go run ./cmd/tradepilot monitor run
  go run ./cmd/tradepilot export macd --code 600519
  go run ./cmd/tradepilot config check`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// flags override .env / environment
		if strategyFile != "" {
			os.Setenv("STRATEGY_CONFIG", strategyFile)
		}
		if source != "" {
			os.Setenv("MARKET_DATA_SOURCE", source)
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default $STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&source, "source", "", "market data source: mock|duckdb|postgres (default $MARKET_DATA_SOURCE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
