package metrics

import (
	"fmt"
	"time"
)

// Period is the reporting window of a metrics query
type Period string

const (
	PeriodDay     Period = "24h"
	PeriodWeek    Period = "7d"
	PeriodMonth   Period = "30d"
	PeriodQuarter Period = "90d"
)

// Periods lists the selectable reporting windows in display order
var Periods = []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter}

// ParsePeriod returns the period for s, defaulting to the last 7 days
func ParsePeriod(s string) Period {
	for _, p := range Periods {
		if string(p) == s {
			return p
		}
	}
	return PeriodWeek
}

// Overview is the headline summary for a client
type Overview struct {
	TotalExecutions      int     `json:"total_executions"`
	SuccessfulExecutions int     `json:"successful_executions"`
	FailedExecutions     int     `json:"failed_executions"`
	SuccessRate          float64 `json:"success_rate"`
	TimeSavedMinutes     float64 `json:"time_saved_minutes"`
	ActiveWorkflows      int     `json:"active_workflows"`
	Period               Period  `json:"period"`
}

// TimeSaved renders TimeSavedMinutes as hours and minutes
func (o Overview) TimeSaved() string {
	return FormatMinutes(o.TimeSavedMinutes)
}

// WorkflowMetric is a server computed per-workflow row
type WorkflowMetric struct {
	WorkflowID           string    `json:"workflow_id"`
	WorkflowName         string    `json:"workflow_name"`
	CategoryID           string    `json:"category_id,omitempty"`
	TotalExecutions      int       `json:"total_executions"`
	SuccessfulExecutions int       `json:"successful_executions"`
	FailedExecutions     int       `json:"failed_executions"`
	SuccessRate          float64   `json:"success_rate"`
	TimeSavedMinutes     float64   `json:"time_saved_minutes"`
	LastExecutionAt      time.Time `json:"last_execution_at,omitempty"`
}

// ExecutionStatus is the engine's status of a single run
type ExecutionStatus string

const (
	ExecutionSuccess  ExecutionStatus = "success"
	ExecutionError    ExecutionStatus = "error"
	ExecutionRunning  ExecutionStatus = "running"
	ExecutionWaiting  ExecutionStatus = "waiting"
	ExecutionCanceled ExecutionStatus = "canceled"
)

// Finished returns true once the run can no longer change
func (s ExecutionStatus) Finished() bool {
	return s == ExecutionSuccess || s == ExecutionError || s == ExecutionCanceled
}

// Execution is a single workflow run
type Execution struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"`
	WorkflowName string          `json:"workflow_name"`
	Status       ExecutionStatus `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	DurationMs   int64           `json:"duration_ms"`
}

// ExecutionFilter narrows an execution listing
type ExecutionFilter struct {
	Status     ExecutionStatus
	WorkflowID string
	Limit      int
}

// Freshness reports how recently metrics were synced from the engine
type Freshness struct {
	LastSyncAt        time.Time `json:"last_sync_at"`
	IsStale           bool      `json:"is_stale"`
	StaleAfterMinutes int       `json:"stale_after_minutes"`
}

// SyncResult is returned by a manual metrics or workflow sync
type SyncResult struct {
	Synced    int       `json:"synced"`
	StartedAt time.Time `json:"started_at"`
	Message   string    `json:"message,omitempty"`
}

// FormatMinutes renders a minute count as "3h 20m" or "45m"
func FormatMinutes(minutes float64) string {
	total := int(minutes + 0.5)
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	if total%60 == 0 {
		return fmt.Sprintf("%dh", total/60)
	}
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}
