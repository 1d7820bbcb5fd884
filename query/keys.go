package query

import (
	"strconv"

	"github.com/jrsteele09/vistara-dashboard/metrics"
	"github.com/jrsteele09/vistara-dashboard/users"
	"github.com/jrsteele09/vistara-dashboard/workflows"
)

// Keys holds the typed key builders, e.g. query.Keys.Workflows.Detail(clientID, id).
var Keys = struct {
	Me          meKeys
	Clients     clientKeys
	Users       userKeys
	Invitations invitationKeys
	Workflows   workflowKeys
	Metrics     metricKeys
	Executions  executionKeys
	Freshness   freshnessKeys
	Categories  categoryKeys
	Chatbots    chatbotKeys
	Guides      guideKeys
}{}

type meKeys struct{}

func (meKeys) Current() Key { return Key{Resource: ResourceMe} }

type clientKeys struct{}

func (clientKeys) All() Target { return Target{Resource: ResourceClients} }
func (clientKeys) List() Key { return Key{Resource: ResourceClients} }
func (clientKeys) Detail(id string) Key { return Key{Resource: ResourceClients, Scope: Scope{id}} }
func (clientKeys) One(id string) Target { return Target{Resource: ResourceClients, Scope: Scope{id}} }
func (clientKeys) ConfigStatus(id string) Key { return Key{Resource: ResourceClientStatus, Scope: Scope{id}} }

type userKeys struct{}

func (userKeys) All() Target { return Target{Resource: ResourceUsers} }

func (userKeys) List(f users.Filter) Key {
	return Key{Resource: ResourceUsers, Filters: Filters{"role": string(f.Role), "client_id": f.ClientID, "search": f.Search}}
}

func (userKeys) Detail(id string) Key { return Key{Resource: ResourceUsers, Scope: Scope{id}} }

type invitationKeys struct{}

func (invitationKeys) All() Target { return Target{Resource: ResourceInvitations} }

func (invitationKeys) List(status, clientID string) Key {
	return Key{Resource: ResourceInvitations, Filters: Filters{"status": status, "client_id": clientID}}
}

func (invitationKeys) Link(id string) Key {
	return Key{Resource: ResourceInvitations, Scope: Scope{id, "link"}}
}

type workflowKeys struct{}

// Client covers every workflow key of one client.
func (workflowKeys) Client(clientID string) Target {
	return Target{Resource: ResourceWorkflows, Scope: Scope{clientID}}
}

func (workflowKeys) List(clientID string, f workflows.Filter) Key {
	return Key{
		Resource: ResourceWorkflows,
		Scope:    Scope{clientID},
		Filters:  Filters{"status": string(f.Status), "category_id": f.CategoryID, "search": f.Search},
	}
}

func (workflowKeys) Detail(clientID, id string) Key {
	return Key{Resource: ResourceWorkflows, Scope: Scope{clientID, id}}
}

func (workflowKeys) Engine(clientID string) Key {
	return Key{Resource: ResourceEngineWorkflows, Scope: Scope{clientID}}
}

type metricKeys struct{}

func (metricKeys) Client(clientID string) Target {
	return Target{Resource: ResourceMetrics, Scope: Scope{clientID}}
}

func (metricKeys) Overview(clientID string, p metrics.Period) Key {
	return Key{Resource: ResourceMetrics, Scope: Scope{clientID, "overview"}, Filters: Filters{"period": string(p)}}
}

func (metricKeys) Workflows(clientID string, p metrics.Period) Key {
	return Key{Resource: ResourceMetrics, Scope: Scope{clientID, "workflows"}, Filters: Filters{"period": string(p)}}
}

type executionKeys struct{}

func (executionKeys) List(clientID string, f metrics.ExecutionFilter) Key {
	filters := Filters{"status": string(f.Status), "workflow_id": f.WorkflowID}
	if f.Limit > 0 {
		filters["limit"] = strconv.Itoa(f.Limit)
	}
	return Key{Resource: ResourceExecutions, Scope: Scope{clientID}, Filters: filters}
}

type freshnessKeys struct{}

func (freshnessKeys) Client(clientID string) Key {
	return Key{Resource: ResourceFreshness, Scope: Scope{clientID}}
}

type categoryKeys struct{}

func (categoryKeys) All() Target { return Target{Resource: ResourceCategories} }
func (categoryKeys) List() Key { return Key{Resource: ResourceCategories} }

type chatbotKeys struct{}

func (chatbotKeys) List(clientID string) Key {
	return Key{Resource: ResourceChatbots, Filters: Filters{"client_id": clientID}}
}

func (chatbotKeys) Detail(id string) Key { return Key{Resource: ResourceChatbots, Scope: Scope{id}} }

type guideKeys struct{}

func (guideKeys) List() Key { return Key{Resource: ResourceGuides} }
func (guideKeys) Detail(slug string) Key { return Key{Resource: ResourceGuides, Scope: Scope{slug}} }
