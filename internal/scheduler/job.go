package scheduler

import (
	"context"
	"slices"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the 5-field cron expression
	// Examples: "*/30 9-15 * * 1-5", "@daily"
	Schedule() string
}

// JobResult is one run of a job, retries included
type JobResult struct {
	RunID     string        `json:"run_id"`
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobStats summarises the retained history of a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}

// historyLimit bounds the runs kept per job (30분 주기 기준 약 2주 장중)
const historyLimit = 100

// JobHistory keeps the most recent runs of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// AddResult appends result, dropping the oldest run past historyLimit
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if over := len(h.Results) - historyLimit; over > 0 {
		h.Results = slices.Delete(h.Results, 0, over)
	}
}

// GetLatestResults returns up to n of the newest runs
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n <= 0 || len(h.Results) == 0 {
		return []JobResult{}
	}
	return h.Results[max(len(h.Results)-n, 0):]
}

// GetFailedResults returns the failed runs
func (h *JobHistory) GetFailedResults() []JobResult {
	return slices.DeleteFunc(slices.Clone(h.Results), func(r JobResult) bool { return r.Success })
}

// GetSuccessRate returns the share of successful runs (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	ok := len(h.Results) - len(h.GetFailedResults())
	return float64(ok) / float64(len(h.Results))
}

// Stats builds the JobStats of this history
func (h *JobHistory) Stats(name, schedule string) JobStats {
	failed := len(h.GetFailedResults())
	st := JobStats{
		JobName:      name,
		Schedule:     schedule,
		TotalRuns:    len(h.Results),
		SuccessCount: len(h.Results) - failed,
		FailureCount: failed,
		SuccessRate:  h.GetSuccessRate(),
	}

	for i := len(h.Results) - 1; i >= 0; i-- {
		r := h.Results[i]
		if st.LastRun == nil {
			st.LastRun = &r.StartTime
			st.LastRunID = r.RunID
		}
		if r.Success && st.LastSuccess == nil {
			st.LastSuccess = &r.StartTime
		}
		if !r.Success && st.LastFailure == nil {
			st.LastFailure = &r.StartTime
		}
		if st.LastSuccess != nil && st.LastFailure != nil {
			break
		}
	}
	return st
}
