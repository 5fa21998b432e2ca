package api

import (
	"context"
	"net/http"

	"finclient/internal/core"
)

func (c *Client) ListGoals(ctx context.Context) ([]core.Goal, error) {
	return list[core.Goal](ctx, c, "/goals", nil)
}

func (c *Client) ListActiveGoals(ctx context.Context) ([]core.Goal, error) {
	return list[core.Goal](ctx, c, "/goals/active", nil)
}

func (c *Client) ListCompletedGoals(ctx context.Context) ([]core.Goal, error) {
	return list[core.Goal](ctx, c, "/goals/completed", nil)
}

func (c *Client) ListGoalsByPriority(ctx context.Context, priority core.GoalPriority) ([]core.Goal, error) {
	if !priority.Valid() {
		return nil, core.ErrInvalidPriority
	}
	return list[core.Goal](ctx, c, "/goals/priority/"+string(priority), nil)
}

func (c *Client) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	return call[core.Goal](ctx, c, http.MethodGet, resourcePath("goals", id), nil, nil)
}

func (c *Client) CreateGoal(ctx context.Context, req core.CreateGoalRequest) (core.Goal, error) {
	return call[core.Goal](ctx, c, http.MethodPost, "/goals", nil, req)
}

func (c *Client) UpdateGoal(ctx context.Context, id int64, patch core.GoalPatch) (core.Goal, error) {
	return call[core.Goal](ctx, c, http.MethodPut, resourcePath("goals", id), nil, patch)
}

func (c *Client) DeleteGoal(ctx context.Context, id int64) error {
	return c.remove(ctx, resourcePath("goals", id))
}

// GetGoalProgress fetches the server-derived progress view of a goal.
func (c *Client) GetGoalProgress(ctx context.Context, id int64) (core.GoalProgress, error) {
	return call[core.GoalProgress](ctx, c, http.MethodGet, resourcePath("goals", id, "progress"), nil, nil)
}

func (c *Client) UpdateGoalProgress(ctx context.Context, id int64, req core.UpdateGoalProgressRequest) (core.Goal, error) {
	return call[core.Goal](ctx, c, http.MethodPatch, resourcePath("goals", id, "progress"), nil, req)
}

func (c *Client) CompleteGoal(ctx context.Context, id int64) (core.Goal, error) {
	return call[core.Goal](ctx, c, http.MethodPatch, resourcePath("goals", id, "complete"), nil, nil)
}

func (c *Client) CancelGoal(ctx context.Context, id int64) (core.Goal, error) {
	return call[core.Goal](ctx, c, http.MethodPatch, resourcePath("goals", id, "cancel"), nil, nil)
}
