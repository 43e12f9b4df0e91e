package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// monitorCmd groups the plan monitor commands
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor active trade plans for stop-loss / take-profit",
	Long: `Evaluate exit conditions of every active trade plan.

Requires DATABASE_URL.

Example:
  go run ./cmd/tradepilot monitor run
  go run ./cmd/tradepilot monitor start`,
}

var monitorRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one monitoring pass now",
	RunE:  runMonitorOnce,
}

var monitorStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the monitor on the strategy's cron schedule until interrupted",
	RunE:  runMonitorScheduler,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.AddCommand(monitorRunCmd)
	monitorCmd.AddCommand(monitorStartCmd)
}

func runMonitorOnce(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	if a.db == nil {
		return errNoDatabase
	}

	results, err := a.plans().MonitorActive(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("=== Plan Monitor: %d active plans ===\n", len(results))
	for _, r := range results {
		status := "hold"
		if r.Triggered() {
			status = "TRIGGERED"
		}
		price := "-"
		if r.CurrentPrice != nil {
			price = fmt.Sprintf("%.2f", *r.CurrentPrice)
		}
		fmt.Printf("#%d %s %s  price=%s  %s\n", r.Plan.ID, r.Plan.StockCode, r.Plan.StockName, price, status)
		if r.StopLoss != nil && r.StopLoss.Triggered {
			for _, c := range r.StopLoss.Conditions {
				fmt.Printf("    stop:   %s\n", c.Name)
			}
		}
		if r.TakeProfit != nil && r.TakeProfit.Triggered {
			for _, c := range r.TakeProfit.Conditions {
				fmt.Printf("    profit: %s\n", c.Name)
			}
		}
	}
	return nil
}

func runMonitorScheduler(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	if a.db == nil {
		return errNoDatabase
	}

	sched, err := newMonitorScheduler(a, a.plans())
	if err != nil {
		return err
	}

	sched.Start()
	fmt.Printf("=== Plan monitor running (%s, %s) ===\n", a.policy.Monitor.Schedule, a.policy.Meta.Timezone)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()
	for name, st := range sched.GetJobStats() {
		fmt.Printf("%s: %d runs, %.0f%% success\n", name, st.TotalRuns, st.SuccessRate*100)
	}
	return nil
}
