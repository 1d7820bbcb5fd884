package clients

import "time"

// Client is a customer organisation (tenant). Workflows, metrics and
// chatbots are scoped to a single client.
type Client struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	HasAPIKey    bool          `json:"has_api_key"`
	APIURL       string        `json:"api_url,omitempty"`
	ConfigStatus *ConfigStatus `json:"config_status,omitempty"`
	CreatedAt    time.Time     `json:"created_at,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at,omitempty"`
}

// ConfigState summarises whether a client's workflow-engine connection works.
type ConfigState string

const (
	ConfigHealthy       ConfigState = "healthy"
	ConfigMissingAPIKey ConfigState = "missing_api_key"
	ConfigUnreachable   ConfigState = "unreachable"
	ConfigUnknown       ConfigState = "unknown"
)

// ConfigStatus is a derived, possibly stale health summary fetched on demand.
type ConfigStatus struct {
	State         ConfigState `json:"state"`
	Message       string      `json:"message,omitempty"`
	WorkflowCount int         `json:"workflow_count"`
	CheckedAt     time.Time   `json:"checked_at,omitempty"`
}

// Healthy returns true if the engine connection was verified.
func (s *ConfigStatus) Healthy() bool {
	return s != nil && s.State == ConfigHealthy
}

// Create is the payload for creating a client.
type Create struct {
	Name   string `json:"name"`
	APIURL string `json:"api_url,omitempty"`
	APIKey string `json:"api_key,omitempty"`
}

// Update is the payload for updating a client. Nil fields are left unchanged.
type Update struct {
	Name   *string `json:"name,omitempty"`
	APIURL *string `json:"api_url,omitempty"`
}

// APIKeyUpdate sets the workflow-engine credentials of a client.
type APIKeyUpdate struct {
	APIURL string `json:"api_url"`
	APIKey string `json:"api_key"`
}

// Find returns the client with the given id.
func Find(list []Client, id string) (Client, bool) {
	for _, c := range list {
		if c.ID == id {
			return c, true
		}
	}
	return Client{}, false
}
