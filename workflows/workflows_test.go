package workflows_test

import (
	"testing"

	"github.com/jrsteele09/vistara-dashboard/workflows"
	"github.com/stretchr/testify/require"
)

func fixtureRows() []workflows.Workflow {
	return []workflows.Workflow{
		{ID: "w1", Name: "invoice-sync", DisplayName: "Invoice Sync", CategoryID: "fin", IsActive: true, TotalExecutions: 40, SuccessRate: 97.5},
		{ID: "w2", Name: "lead-router", CategoryID: "sales", IsActive: false, TotalExecutions: 120, SuccessRate: 88},
		{ID: "w3", Name: "ticket-triage", Description: "Routes invoice disputes", CategoryID: "support", IsActive: true, TotalExecutions: 40, SuccessRate: 99},
	}
}

func ids(list []workflows.Workflow) []string {
	out := make([]string, 0, len(list))
	for _, w := range list {
		out = append(out, w.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	rows := fixtureRows()

	t.Run("zero value matches all", func(t *testing.T) {
		require.Equal(t, []string{"w1", "w2", "w3"}, ids(workflows.Filter{}.Apply(rows)))
	})

	t.Run("status", func(t *testing.T) {
		require.Equal(t, []string{"w1", "w3"}, ids(workflows.Filter{Status: workflows.StatusActive}.Apply(rows)))
		require.Equal(t, []string{"w2"}, ids(workflows.Filter{Status: workflows.StatusInactive}.Apply(rows)))
	})

	t.Run("category", func(t *testing.T) {
		require.Equal(t, []string{"w2"}, ids(workflows.Filter{CategoryID: "sales"}.Apply(rows)))
	})

	t.Run("search covers name, display name and description", func(t *testing.T) {
		require.Equal(t, []string{"w1", "w3"}, ids(workflows.Filter{Search: " INVOICE "}.Apply(rows)))
	})
}

func TestSort(t *testing.T) {
	t.Run("name ascending", func(t *testing.T) {
		rows := fixtureRows()
		workflows.Sort(rows, workflows.SortByName, false)
		require.Equal(t, []string{"w1", "w2", "w3"}, ids(rows))
	})

	t.Run("executions descending with name tiebreak", func(t *testing.T) {
		rows := fixtureRows()
		workflows.Sort(rows, workflows.SortByExecutions, false)
		require.Equal(t, []string{"w2", "w1", "w3"}, ids(rows))
	})

	t.Run("success rate flipped", func(t *testing.T) {
		rows := fixtureRows()
		workflows.Sort(rows, workflows.SortBySuccessRate, true)
		require.Equal(t, []string{"w2", "w1", "w3"}, ids(rows))
	})
}

func TestTitle(t *testing.T) {
	rows := fixtureRows()
	require.Equal(t, "Invoice Sync", rows[0].Title())
	require.Equal(t, "lead-router", rows[1].Title())
}
