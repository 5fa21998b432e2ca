package api

import (
	"context"
	"net/http"

	"finclient/internal/core"
)

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	return list[core.Category](ctx, c, "/categories", nil)
}

func (c *Client) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return call[core.Category](ctx, c, http.MethodGet, resourcePath("categories", id), nil, nil)
}

func (c *Client) CreateCategory(ctx context.Context, req core.CreateCategoryRequest) (core.Category, error) {
	return call[core.Category](ctx, c, http.MethodPost, "/categories", nil, req)
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, patch core.CategoryPatch) (core.Category, error) {
	return call[core.Category](ctx, c, http.MethodPut, resourcePath("categories", id), nil, patch)
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.remove(ctx, resourcePath("categories", id))
}
