package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepilot/internal/export"
	"github.com/wonny/tradepilot/internal/technical"
)

var (
	exportCode  string
	exportOut   string
	exportStart string
	exportEnd   string
)

// exportCmd groups offline exports
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export indicator series to parquet",
}

var exportMACDCmd = &cobra.Command{
	Use:   "macd",
	Short: "Export the daily MACD series of a stock",
	Long: `Compute the daily MACD(12,26,9) of a stock and write it as parquet.

Example:
  go run ./cmd/tradepilot export macd --code 600519
  go run ./cmd/tradepilot export macd --code 600519 --start 2024-01-01 --end 2024-12-31 --out data/macd/600519.parquet`,
	RunE: runExportMACD,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportMACDCmd)

	exportMACDCmd.Flags().StringVar(&exportCode, "code", "", "stock code (required)")
	exportMACDCmd.Flags().StringVar(&exportOut, "out", "", "output file (default data/export/macd_<code>.parquet)")
	exportMACDCmd.Flags().StringVar(&exportStart, "start", "", "start date YYYY-MM-DD (default end-365d)")
	exportMACDCmd.Flags().StringVar(&exportEnd, "end", "", "end date YYYY-MM-DD (default today)")
	_ = exportMACDCmd.MarkFlagRequired("code")
}

func runExportMACD(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if exportEnd != "" {
		t, err := time.Parse(time.DateOnly, exportEnd)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
		end = t
	}
	start := end.AddDate(0, 0, -365)
	if exportStart != "" {
		t, err := time.Parse(time.DateOnly, exportStart)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		start = t
	}
	if start.After(end) {
		return fmt.Errorf("--start %s is after --end %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	out := exportOut
	if out == "" {
		out = filepath.Join("data", "export", fmt.Sprintf("macd_%s.parquet", exportCode))
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	bars, err := a.provider.GetStockDaily(ctx, exportCode, start, end)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars for %s between %s and %s", exportCode, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	points := technical.ComputeMACD(bars)
	if err := export.WriteMACDFile(out, points); err != nil {
		return err
	}

	fmt.Printf("=== Exported %d MACD points for %s to %s ===\n", len(points), exportCode, out)
	return nil
}
