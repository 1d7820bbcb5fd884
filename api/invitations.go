package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/invitations"
	"github.com/jrsteele09/vistara-dashboard/users"
)

// InvitationsAPI manages invitations. Status is server-authoritative.
type InvitationsAPI struct {
	c *apiclient.Client
}

func (a *InvitationsAPI) List(ctx context.Context, f invitations.Filter) ([]invitations.Invitation, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.ClientID != "" {
		q.Set("client_id", f.ClientID)
	}
	return apiclient.Call[[]invitations.Invitation](ctx, a.c, http.MethodGet, "/invitations/", nil, &apiclient.RequestOptions{Query: q})
}

// Create invites an email address. Client invitations must name a client.
func (a *InvitationsAPI) Create(ctx context.Context, in invitations.Create) (*invitations.Invitation, error) {
	if err := firstError(validEmail("email", in.Email), validRole("role", in.Role)); err != nil {
		return nil, err
	}
	if in.Role == users.RoleClient {
		if err := required("client_id", in.ClientID); err != nil {
			return nil, err
		}
	}
	return apiclient.Call[*invitations.Invitation](ctx, a.c, http.MethodPost, "/invitations/", in, nil)
}

// Resend re-sends the email and extends the expiry.
func (a *InvitationsAPI) Resend(ctx context.Context, id string) (*invitations.Invitation, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return apiclient.Call[*invitations.Invitation](ctx, a.c, http.MethodPost, apiclient.Path("/invitations/%s/resend", id), nil, nil)
}

// Revoke invalidates a pending invitation.
func (a *InvitationsAPI) Revoke(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	_, err := a.c.Do(ctx, http.MethodDelete, apiclient.Path("/invitations/%s", id), nil, nil)
	return err
}

// Link returns the acceptance link for copying.
func (a *InvitationsAPI) Link(ctx context.Context, id string) (*invitations.Link, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return apiclient.CallRequired[*invitations.Link](ctx, a.c, http.MethodGet, apiclient.Path("/invitations/%s/link", id), nil, nil)
}
