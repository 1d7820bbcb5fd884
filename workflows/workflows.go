package workflows

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Workflow is a curated Vistara record wrapping an engine workflow. Execution
// counters and derived figures are server computed and read only.
type Workflow struct {
	ID                      string    `json:"id"`
	ClientID                string    `json:"client_id"`
	EngineWorkflowID        string    `json:"engine_workflow_id"`
	Name                    string    `json:"name"`
	DisplayName             string    `json:"display_name,omitempty"`
	Description             string    `json:"description,omitempty"`
	CategoryID              string    `json:"category_id,omitempty"`
	IsActive                bool      `json:"is_active"`
	TimeSavedPerExecutionMs int64     `json:"time_saved_per_execution_ms"`
	TotalExecutions         int       `json:"total_executions"`
	SuccessfulExecutions    int       `json:"successful_executions"`
	FailedExecutions        int       `json:"failed_executions"`
	SuccessRate             float64   `json:"success_rate"`
	TimeSavedMinutes        float64   `json:"time_saved_minutes"`
	LastExecutionAt         time.Time `json:"last_execution_at,omitempty"`
	CreatedAt               time.Time `json:"created_at,omitempty"`
	UpdatedAt               time.Time `json:"updated_at,omitempty"`
}

// Title returns the display name, falling back to the engine name
func (w Workflow) Title() string {
	if w.DisplayName != "" {
		return w.DisplayName
	}
	return w.Name
}

// TimeSavedPerExecutionMinutes converts the manual estimate for display
func (w Workflow) TimeSavedPerExecutionMinutes() float64 {
	return float64(w.TimeSavedPerExecutionMs) / float64(time.Minute/time.Millisecond)
}

// Create registers an engine workflow as a curated record
type Create struct {
	EngineWorkflowID        string `json:"engine_workflow_id"`
	DisplayName             string `json:"display_name,omitempty"`
	Description             string `json:"description,omitempty"`
	CategoryID              string `json:"category_id,omitempty"`
	TimeSavedPerExecutionMs int64  `json:"time_saved_per_execution_ms,omitempty"`
}

// Update edits the display-adjacent fields only. Nil fields are left unchanged.
type Update struct {
	DisplayName             *string `json:"display_name,omitempty"`
	Description             *string `json:"description,omitempty"`
	CategoryID              *string `json:"category_id,omitempty"`
	TimeSavedPerExecutionMs *int64  `json:"time_saved_per_execution_ms,omitempty"`
	IsActive                *bool   `json:"is_active,omitempty"`
}

// EngineWorkflow is a workflow as reported by the engine, before curation
type EngineWorkflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Status filters by the active flag
type Status string

const (
	StatusAll      Status = ""
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// SortField selects the ordering of a workflow table
type SortField string

const (
	SortByName        SortField = "name"
	SortByExecutions  SortField = "executions"
	SortBySuccessRate SortField = "success_rate"
)

// Filter narrows fetched workflow rows. The zero value matches everything.
type Filter struct {
	Status     Status
	CategoryID string
	Search     string
}

// Match returns true if w passes every set criterion
func (f Filter) Match(w Workflow) bool {
	switch f.Status {
	case StatusActive:
		if !w.IsActive {
			return false
		}
	case StatusInactive:
		if w.IsActive {
			return false
		}
	}
	if f.CategoryID != "" && w.CategoryID != f.CategoryID {
		return false
	}
	if q := strings.TrimSpace(strings.ToLower(f.Search)); q != "" {
		hay := strings.ToLower(w.Name + " " + w.DisplayName + " " + w.Description)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

// Apply returns the rows matching f, preserving order
func (f Filter) Apply(list []Workflow) []Workflow {
	out := make([]Workflow, 0, len(list))
	for _, w := range list {
		if f.Match(w) {
			out = append(out, w)
		}
	}
	return out
}

// Sort orders rows in place. Numeric fields sort descending by default, the
// name ascending; desc flips the default. Ties fall back to the name.
func Sort(list []Workflow, field SortField, desc bool) {
	slices.SortStableFunc(list, func(a, b Workflow) int {
		var c int
		switch field {
		case SortByExecutions:
			c = cmp.Compare(b.TotalExecutions, a.TotalExecutions)
		case SortBySuccessRate:
			c = cmp.Compare(b.SuccessRate, a.SuccessRate)
		default:
			c = strings.Compare(strings.ToLower(a.Title()), strings.ToLower(b.Title()))
		}
		if desc {
			c = -c
		}
		if c == 0 {
			c = strings.Compare(strings.ToLower(a.Title()), strings.ToLower(b.Title()))
		}
		return c
	})
}
