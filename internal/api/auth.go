package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"finclient/internal/core"
)

var errMissingToken = errors.New("auth response carried no token")

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, req core.LoginRequest) (core.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", req)
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, req core.RegisterRequest) (core.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", req)
}

// Logout forgets the stored token. The backend keeps no server-side session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.tokens.ClearToken(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path string, payload any) (core.AuthResponse, error) {
	resp, err := call[core.AuthResponse](ctx, c, http.MethodPost, path, nil, payload)
	if err != nil {
		return core.AuthResponse{}, err
	}
	if resp.Token == "" {
		return core.AuthResponse{}, decodeError(http.StatusOK, errMissingToken)
	}
	if err := c.tokens.SetToken(ctx, resp.Token); err != nil {
		return core.AuthResponse{}, fmt.Errorf("store token: %w", err)
	}
	return resp, nil
}
