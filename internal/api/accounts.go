package api

import (
	"context"
	"net/http"

	"finclient/internal/core"
)

func (c *Client) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return list[core.Account](ctx, c, "/accounts", nil)
}

func (c *Client) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return call[core.Account](ctx, c, http.MethodGet, resourcePath("accounts", id), nil, nil)
}

func (c *Client) CreateAccount(ctx context.Context, req core.CreateAccountRequest) (core.Account, error) {
	return call[core.Account](ctx, c, http.MethodPost, "/accounts", nil, req)
}

func (c *Client) UpdateAccount(ctx context.Context, id int64, patch core.AccountPatch) (core.Account, error) {
	return call[core.Account](ctx, c, http.MethodPut, resourcePath("accounts", id), nil, patch)
}

func (c *Client) DeleteAccount(ctx context.Context, id int64) error {
	return c.remove(ctx, resourcePath("accounts", id))
}
