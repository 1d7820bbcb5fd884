package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/users"
)

// UsersAPI manages dashboard accounts. Admin only.
type UsersAPI struct {
	c *apiclient.Client
}

func (a *UsersAPI) List(ctx context.Context, f users.Filter) ([]users.User, error) {
	q := url.Values{}
	if f.Role != "" {
		q.Set("role", string(f.Role))
	}
	if f.ClientID != "" {
		q.Set("client_id", f.ClientID)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return apiclient.Call[[]users.User](ctx, a.c, http.MethodGet, "/users/", nil, &apiclient.RequestOptions{Query: q})
}

func (a *UsersAPI) Get(ctx context.Context, id string) (*users.User, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return apiclient.CallRequired[*users.User](ctx, a.c, http.MethodGet, apiclient.Path("/users/%s", id), nil, nil)
}

// Update changes a user's role, client or active flag.
func (a *UsersAPI) Update(ctx context.Context, id string, in users.Update) (*users.User, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	if in.Role != nil {
		if err := validRole("role", *in.Role); err != nil {
			return nil, err
		}
	}
	return apiclient.Call[*users.User](ctx, a.c, http.MethodPut, apiclient.Path("/users/%s", id), in, nil)
}

func (a *UsersAPI) Delete(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	_, err := a.c.Do(ctx, http.MethodDelete, apiclient.Path("/users/%s", id), nil, nil)
	return err
}
