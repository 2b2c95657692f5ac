package client

import (
	"context"

	"github.com/neiii/stargate-better-auth/internal/api"
	"github.com/neiii/stargate-better-auth/internal/service"
)

// Status fetches the caller's current star and access standing.
func (c *Client) Status(ctx context.Context) (*service.GateStatus, string, error) {
	var status service.GateStatus
	correlation, err := c.get(ctx, c.url().
		setPath(api.StatusRoute).
		build(), &status)
	if err != nil {
		return nil, correlation, err
	}
	return &status, correlation, nil
}

// Refresh drops the caller's cached record and forces a fresh star check.
func (c *Client) Refresh(ctx context.Context) (*service.GateStatus, string, error) {
	var status service.GateStatus
	correlation, err := c.post(ctx, c.url().
		setPath(api.RefreshRoute).
		build(), nil, &status)
	if err != nil {
		return nil, correlation, err
	}
	return &status, correlation, nil
}

// VerifyLogin runs the post-login star gate for the session the client is
// authenticated as. A denial comes back as an APIError carrying the stable
// code, with the session already torn down server-side.
func (c *Client) VerifyLogin(ctx context.Context) (*service.LoginResult, string, error) {
	var result service.LoginResult
	correlation, err := c.post(ctx, c.url().
		setPath(api.LoginHookRoute).
		build(), nil, &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}
