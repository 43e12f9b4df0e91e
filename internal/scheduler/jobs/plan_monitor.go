// Package jobs holds the scheduled jobs of the tradepilot service.
package jobs

import (
	"context"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/tradeplan"
	"github.com/wonny/tradepilot/pkg/logger"
)

// PlanMonitor checks every active plan
type PlanMonitor interface {
	MonitorActive(ctx context.Context) ([]tradeplan.MonitorResult, error)
}

// PlanMonitorJob evaluates exit conditions of active plans
type PlanMonitorJob struct {
	monitor  PlanMonitor
	schedule string
	logger   *logger.Logger
}

// NewPlanMonitorJob creates a new plan monitor job
func NewPlanMonitorJob(monitor PlanMonitor, schedule string, log *logger.Logger) *PlanMonitorJob {
	return &PlanMonitorJob{
		monitor:  monitor,
		schedule: schedule,
		logger:   log.WithComponent("plan_monitor"),
	}
}

// Name returns the job name
func (j *PlanMonitorJob) Name() string {
	return "plan_monitor"
}

// Schedule returns the cron schedule from the strategy config
func (j *PlanMonitorJob) Schedule() string {
	return j.schedule
}

// Run executes one monitoring pass
func (j *PlanMonitorJob) Run(ctx context.Context) error {
	results, err := j.monitor.MonitorActive(ctx)
	if err != nil {
		return err
	}

	triggered := 0
	for _, r := range results {
		if !r.Triggered() {
			continue
		}
		triggered++
		fields := map[string]interface{}{
			"plan_id": r.Plan.ID,
			"code":    r.Plan.StockCode,
		}
		if r.StopLoss != nil && r.StopLoss.Triggered {
			fields["stop_loss"] = conditionNames(r.StopLoss.Conditions)
		}
		if r.TakeProfit != nil && r.TakeProfit.Triggered {
			fields["take_profit"] = conditionNames(r.TakeProfit.Conditions)
		}
		j.logger.WithFields(fields).Warn("plan exit signal")
	}

	j.logger.WithFields(map[string]interface{}{
		"checked":   len(results),
		"triggered": triggered,
	}).Info("Plan monitor pass completed")
	return nil
}

func conditionNames(conditions []contracts.ExitCondition) []string {
	names := make([]string, len(conditions))
	for i, c := range conditions {
		names[i] = c.Name
	}
	return names
}
