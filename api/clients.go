package api

import (
	"context"
	"net/http"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/clients"
)

// ClientsAPI manages tenants. Admin only.
type ClientsAPI struct {
	c *apiclient.Client
}

func (a *ClientsAPI) List(ctx context.Context) ([]clients.Client, error) {
	return apiclient.Call[[]clients.Client](ctx, a.c, http.MethodGet, "/clients/", nil, nil)
}

func (a *ClientsAPI) Get(ctx context.Context, id string) (*clients.Client, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return apiclient.CallRequired[*clients.Client](ctx, a.c, http.MethodGet, apiclient.Path("/clients/%s", id), nil, nil)
}

func (a *ClientsAPI) Create(ctx context.Context, in clients.Create) (*clients.Client, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	return apiclient.Call[*clients.Client](ctx, a.c, http.MethodPost, "/clients/", in, nil)
}

func (a *ClientsAPI) Update(ctx context.Context, id string, in clients.Update) (*clients.Client, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	if in.Name != nil {
		if err := required("name", *in.Name); err != nil {
			return nil, err
		}
	}
	return apiclient.Call[*clients.Client](ctx, a.c, http.MethodPut, apiclient.Path("/clients/%s", id), in, nil)
}

func (a *ClientsAPI) Delete(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	_, err := a.c.Do(ctx, http.MethodDelete, apiclient.Path("/clients/%s", id), nil, nil)
	return err
}

// ConfigStatus checks the client's workflow-engine connection.
func (a *ClientsAPI) ConfigStatus(ctx context.Context, id string) (*clients.ConfigStatus, error) {
	if err := required("id", id); err != nil {
		return nil, err
	}
	return apiclient.CallRequired[*clients.ConfigStatus](ctx, a.c, http.MethodGet, apiclient.Path("/clients/%s/config-status", id), nil, nil)
}

// SetAPIKey stores the client's workflow-engine credentials.
func (a *ClientsAPI) SetAPIKey(ctx context.Context, id, apiURL, apiKey string) (*clients.Client, error) {
	if err := firstError(required("id", id), required("api_url", apiURL), required("api_key", apiKey)); err != nil {
		return nil, err
	}
	body := clients.APIKeyUpdate{APIURL: apiURL, APIKey: apiKey}
	return apiclient.Call[*clients.Client](ctx, a.c, http.MethodPut, apiclient.Path("/clients/%s/api-key", id), body, nil)
}
