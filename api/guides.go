package api

import (
	"context"
	"net/http"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/guides"
)

// GuidesAPI reads curated how-to guides.
type GuidesAPI struct {
	c *apiclient.Client
}

func (a *GuidesAPI) List(ctx context.Context) ([]guides.Guide, error) {
	return apiclient.Call[[]guides.Guide](ctx, a.c, http.MethodGet, "/guides/", nil, nil)
}

func (a *GuidesAPI) Get(ctx context.Context, slug string) (*guides.Guide, error) {
	if err := required("slug", slug); err != nil {
		return nil, err
	}
	return apiclient.CallRequired[*guides.Guide](ctx, a.c, http.MethodGet, apiclient.Path("/guides/%s", slug), nil, nil)
}
