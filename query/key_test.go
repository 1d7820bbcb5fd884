package query_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/vistara-dashboard/query"
	"github.com/jrsteele09/vistara-dashboard/workflows"
)

func TestKeyNormalisesFilters(t *testing.T) {
	a := query.Key{Resource: query.ResourceWorkflows, Scope: query.Scope{"c1"}, Filters: query.Filters{"status": "active", "search": "inv"}}
	b := query.Key{Resource: query.ResourceWorkflows, Scope: query.Scope{"c1"}}
	b.Filters = query.Filters{}
	b.Filters["search"] = "inv"
	b.Filters["status"] = "active"

	require.Equal(t, a.String(), b.String())
	require.Equal(t, "workflows|1|c1|search=inv&status=active", a.String())

	t.Run("empty filter values are ignored", func(t *testing.T) {
		k := query.Keys.Workflows.List("c1", workflows.Filter{})
		require.Equal(t, query.Key{Resource: query.ResourceWorkflows, Scope: query.Scope{"c1"}}.String(), k.String())
	})

	t.Run("empty scope segment is not a missing scope", func(t *testing.T) {
		require.NotEqual(t,
			query.Keys.Workflows.List("", workflows.Filter{}).String(),
			query.Key{Resource: query.ResourceWorkflows}.String(),
		)
		require.NotEqual(t,
			query.Key{Resource: query.ResourceGuides, Scope: query.Scope{""}}.String(),
			query.Key{Resource: query.ResourceGuides, Scope: query.Scope{"", ""}}.String(),
		)
	})

	t.Run("scope segments are escaped", func(t *testing.T) {
		require.NotEqual(t,
			query.Key{Resource: query.ResourceGuides, Scope: query.Scope{"a/b"}}.String(),
			query.Key{Resource: query.ResourceGuides, Scope: query.Scope{"a", "b"}}.String(),
		)
	})
}

func TestTargetCovers(t *testing.T) {
	client1 := query.Keys.Workflows.Client("c1")

	require.True(t, client1.Covers(query.Keys.Workflows.List("c1", workflows.Filter{})))
	require.True(t, client1.Covers(query.Keys.Workflows.Detail("c1", "w1")))
	require.False(t, client1.Covers(query.Keys.Workflows.List("c2", workflows.Filter{})))
	require.False(t, client1.Covers(query.Keys.Workflows.Engine("c1")))

	detail := query.Keys.Workflows.Detail("c1", "w1").Target()
	require.True(t, detail.Covers(query.Keys.Workflows.Detail("c1", "w1")))
	require.False(t, detail.Covers(query.Keys.Workflows.List("c1", workflows.Filter{})))

	require.True(t, query.Keys.Clients.All().Covers(query.Keys.Clients.Detail("c9")))
}

func TestRelated(t *testing.T) {
	related := query.Related(query.Keys.Workflows.Detail("c1", "w1").Target())
	require.Contains(t, related, query.Target{Resource: query.ResourceMetrics, Scope: query.Scope{"c1"}})

	require.Contains(t, query.Related(query.Keys.Invitations.All()), query.Target{Resource: query.ResourceUsers})
	require.Contains(t, query.Related(query.Keys.Clients.One("c1")), query.Target{Resource: query.ResourceClientStatus, Scope: query.Scope{"c1"}})
	require.Empty(t, query.Related(query.Target{Resource: query.ResourceGuides}))
}

func TestPolicyFor(t *testing.T) {
	require.Equal(t, 30, int(query.PolicyFor(query.ResourceExecutions).RefetchInterval.Seconds()))
	require.Equal(t, 300, int(query.PolicyFor(query.ResourceMetrics).RefetchInterval.Seconds()))
	require.Equal(t, 120, int(query.PolicyFor(query.ResourceFreshness).RefetchInterval.Seconds()))
	require.Equal(t, query.DefaultPolicy, query.PolicyFor(query.ResourceClients))
	require.Equal(t, 1, query.DefaultPolicy.RetryCount)
	require.False(t, query.DefaultPolicy.RefetchOnFocus)
}
