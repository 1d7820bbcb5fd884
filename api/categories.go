package api

import (
	"context"
	"net/http"

	"github.com/jrsteele09/vistara-dashboard/apiclient"
	"github.com/jrsteele09/vistara-dashboard/categories"
)

// CategoriesAPI manages workflow categories.
type CategoriesAPI struct {
	c *apiclient.Client
}

func (a *CategoriesAPI) List(ctx context.Context) ([]categories.Category, error) {
	return apiclient.Call[[]categories.Category](ctx, a.c, http.MethodGet, "/categories/", nil, nil)
}

func (a *CategoriesAPI) Create(ctx context.Context, in categories.Input) (*categories.Category, error) {
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	return apiclient.Call[*categories.Category](ctx, a.c, http.MethodPost, "/categories/", in, nil)
}

func (a *CategoriesAPI) Update(ctx context.Context, id string, in categories.Input) (*categories.Category, error) {
	if err := firstError(required("id", id), required("name", in.Name)); err != nil {
		return nil, err
	}
	return apiclient.Call[*categories.Category](ctx, a.c, http.MethodPut, apiclient.Path("/categories/%s", id), in, nil)
}

func (a *CategoriesAPI) Delete(ctx context.Context, id string) error {
	if err := required("id", id); err != nil {
		return err
	}
	_, err := a.c.Do(ctx, http.MethodDelete, apiclient.Path("/categories/%s", id), nil, nil)
	return err
}
