package api

import (
	"context"
	"net/http"

	"finclient/internal/core"
)

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return list[core.Budget](ctx, c, "/budgets", nil)
}

func (c *Client) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return call[core.Budget](ctx, c, http.MethodGet, resourcePath("budgets", id), nil, nil)
}

func (c *Client) CreateBudget(ctx context.Context, req core.CreateBudgetRequest) (core.Budget, error) {
	return call[core.Budget](ctx, c, http.MethodPost, "/budgets", nil, req)
}

func (c *Client) UpdateBudget(ctx context.Context, id int64, patch core.BudgetPatch) (core.Budget, error) {
	return call[core.Budget](ctx, c, http.MethodPut, resourcePath("budgets", id), nil, patch)
}

func (c *Client) DeleteBudget(ctx context.Context, id int64) error {
	return c.remove(ctx, resourcePath("budgets", id))
}
