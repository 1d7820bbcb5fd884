package query

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Resource names a family of cached queries.
type Resource string

const (
	ResourceMe              Resource = "me"
	ResourceClients         Resource = "clients"
	ResourceClientStatus    Resource = "client-config-status"
	ResourceUsers           Resource = "users"
	ResourceInvitations     Resource = "invitations"
	ResourceWorkflows       Resource = "workflows"
	ResourceEngineWorkflows Resource = "engine-workflows"
	ResourceMetrics         Resource = "metrics"
	ResourceExecutions      Resource = "executions"
	ResourceFreshness       Resource = "freshness"
	ResourceCategories      Resource = "categories"
	ResourceChatbots        Resource = "chatbots"
	ResourceGuides          Resource = "guides"
)

// Scope is an ordered path of identifiers, outermost first (client, then record).
type Scope []string

// HasPrefix returns true if p is a prefix of s, including equality.
func (s Scope) HasPrefix(p Scope) bool {
	return len(p) <= len(s) && slices.Equal(s[:len(p)], p)
}

// Filters narrow a query. Insertion order never matters.
type Filters map[string]string

// String renders the filters in sorted key order, skipping empty values.
func (f Filters) String() string {
	v := url.Values{}
	for k, val := range f {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v.Encode()
}

// Key identifies one cached result. Structurally equal keys have equal String forms.
type Key struct {
	Resource Resource
	Scope    Scope
	Filters  Filters
}

// String is the canonical cache identity of k. The scope depth is part of
// it, so an empty segment never reads as a missing scope.
func (k Key) String() string {
	escaped := make([]string, len(k.Scope))
	for i, s := range k.Scope {
		escaped[i] = url.PathEscape(s)
	}
	return string(k.Resource) + "|" + strconv.Itoa(len(k.Scope)) + "|" + strings.Join(escaped, "/") + "|" + k.Filters.String()
}

// Target selects keys to invalidate: every key of Resource whose scope starts
// with Scope. A nil Scope covers the whole resource.
type Target struct {
	Resource Resource
	Scope    Scope
}

// Covers returns true if invalidating t must drop k.
func (t Target) Covers(k Key) bool {
	return t.Resource == k.Resource && k.Scope.HasPrefix(t.Scope)
}

// Target returns the target covering exactly k's resource and scope.
func (k Key) Target() Target {
	return Target{Resource: k.Resource, Scope: k.Scope}
}

// Related returns the targets a mutation of t also invalidates.
func Related(t Target) []Target {
	var clientScope Scope
	if len(t.Scope) > 0 {
		clientScope = t.Scope[:1]
	}
	switch t.Resource {
	case ResourceWorkflows:
		return []Target{
			{Resource: ResourceMetrics, Scope: clientScope},
			{Resource: ResourceCategories},
		}
	case ResourceInvitations:
		return []Target{{Resource: ResourceUsers}}
	case ResourceClients:
		return []Target{{Resource: ResourceClientStatus, Scope: clientScope}}
	case ResourceCategories:
		return []Target{{Resource: ResourceWorkflows}}
	case ResourceMetrics:
		return []Target{
			{Resource: ResourceExecutions, Scope: clientScope},
			{Resource: ResourceFreshness, Scope: clientScope},
			{Resource: ResourceWorkflows, Scope: clientScope},
		}
	case ResourceUsers:
		return []Target{{Resource: ResourceMe}}
	}
	return nil
}

// Expand returns t followed by its related targets.
func Expand(t Target) []Target {
	return append([]Target{t}, Related(t)...)
}
