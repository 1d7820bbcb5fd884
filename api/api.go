// Package api exposes typed functions for every upstream resource. Each
// returns the unwrapped payload, never the raw envelope.
package api

import (
	"github.com/jrsteele09/vistara-dashboard/apiclient"
)

// Services groups the per-resource APIs over one client.
type Services struct {
	Auth        *AuthAPI
	Clients     *ClientsAPI
	Users       *UsersAPI
	Invitations *InvitationsAPI
	Workflows   *WorkflowsAPI
	Metrics     *MetricsAPI
	Categories  *CategoriesAPI
	Chatbots    *ChatbotsAPI
	Guides      *GuidesAPI
}

// NewServices wires every resource API to c.
func NewServices(c *apiclient.Client) *Services {
	return &Services{
		Auth:        &AuthAPI{c: c},
		Clients:     &ClientsAPI{c: c},
		Users:       &UsersAPI{c: c},
		Invitations: &InvitationsAPI{c: c},
		Workflows:   &WorkflowsAPI{c: c},
		Metrics:     &MetricsAPI{c: c},
		Categories:  &CategoriesAPI{c: c},
		Chatbots:    &ChatbotsAPI{c: c},
		Guides:      &GuidesAPI{c: c},
	}
}
