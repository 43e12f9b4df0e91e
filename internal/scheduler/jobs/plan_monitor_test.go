package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/tradepilot/internal/contracts"
	"github.com/wonny/tradepilot/internal/tradeplan"
	"github.com/wonny/tradepilot/pkg/logger"
)

type stubMonitor struct {
	results []tradeplan.MonitorResult
	err     error
	calls   int
}

func (s *stubMonitor) MonitorActive(context.Context) ([]tradeplan.MonitorResult, error) {
	s.calls++
	return s.results, s.err
}

func TestPlanMonitorJob(t *testing.T) {
	stop := contracts.RiskDecision{
		Triggered:  true,
		Conditions: []contracts.ExitCondition{{Type: "pct_stop", Name: "亏损12.0%达到止损线-10%", Triggered: true}},
		PnLPct:     -12,
	}
	calm := contracts.RiskDecision{Conditions: []contracts.ExitCondition{}}
	monitor := &stubMonitor{results: []tradeplan.MonitorResult{
		{Plan: &contracts.TradePlan{ID: 1, StockCode: "600519"}, StopLoss: &stop, TakeProfit: &calm},
		{Plan: &contracts.TradePlan{ID: 2, StockCode: "000858"}, StopLoss: &calm, TakeProfit: &calm},
	}}

	job := NewPlanMonitorJob(monitor, "*/30 9-15 * * 1-5", logger.NewNop())
	assert.Equal(t, "plan_monitor", job.Name())
	assert.Equal(t, "*/30 9-15 * * 1-5", job.Schedule())
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, monitor.calls)
}

func TestPlanMonitorJob_PropagatesError(t *testing.T) {
	boom := errors.New("db down")
	job := NewPlanMonitorJob(&stubMonitor{err: boom}, "@hourly", logger.NewNop())
	assert.ErrorIs(t, job.Run(context.Background()), boom)
}

func TestConditionNames(t *testing.T) {
	names := conditionNames([]contracts.ExitCondition{{Name: "放量下跌"}, {Name: "顶背离"}})
	assert.Equal(t, []string{"放量下跌", "顶背离"}, names)
}
