package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var evaluateJSON bool

// evaluateCmd scores one stock from the command line
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <stock_code>",
	Short: "Evaluate a stock and print its composite score and plan conditions",
	Long: `Evaluate a stock with the configured market data source.

Example:
  go run ./cmd/tradepilot evaluate 600519
  go run ./cmd/tradepilot evaluate 600519 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print the raw evaluation as JSON")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	ev, err := a.plans().Evaluate(ctx, args[0])
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", args[0], err)
	}

	if evaluateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ev)
	}

	fmt.Printf("=== %s ===\n", ev.StockCode)
	fmt.Printf("Score:    %.1f (%s)\n", ev.CompositeScore, ev.ScoreLabel)
	fmt.Printf("Price:    %.2f  support %.2f\n", ev.CurrentPrice, ev.SupportPrice)
	fmt.Printf("Market:   %.1f (%s)\n", ev.MarketSentiment.Score, ev.MarketSentiment.Label)
	fmt.Printf("Sector:   %s\n", ev.SectorPosition)
	if ev.PEPercentile != nil {
		fmt.Printf("PE pct:   %.1f%%\n", *ev.PEPercentile)
	}
	if ev.PBPercentile != nil {
		fmt.Printf("PB pct:   %.1f%%\n", *ev.PBPercentile)
	}
	if ev.RiskRewardRatio != nil {
		fmt.Printf("R/R:      %.2f\n", *ev.RiskRewardRatio)
	}

	printList("Reasons", ev.Reasons)
	printList("Entry", ev.EntryConditions)
	printList("Stop loss", ev.StopLossConditions)
	printList("Take profit", ev.TakeProfitConditions)
	return nil
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s:\n  %s\n", title, strings.Join(items, "\n  "))
}
