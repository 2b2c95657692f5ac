package client

import (
	"context"
	"fmt"

	"github.com/neiii/stargate-better-auth/internal/api"
	"github.com/neiii/stargate-better-auth/internal/tasks"
)

func (c *Client) ListTasks(ctx context.Context) ([]tasks.Status, error) {
	var res []tasks.Status
	_, err := c.get(ctx, c.url().
		setPath(api.ListTasksRoute).
		build(), &res)
	return res, err
}

func (c *Client) TriggerTask(ctx context.Context, name string) error {
	var res api.TriggerTaskResponse
	_, err := c.post(ctx, c.url().
		setPath(api.TriggerTaskRoute).
		setPathParam("name", name).
		build(), nil, &res)
	if err != nil {
		return err
	}
	if res.Status != "triggered" {
		return fmt.Errorf("unexpected response status: %s", res.Status)
	}
	return nil
}

func (c *Client) GetTaskLogs(ctx context.Context, name string) ([]tasks.LogEntry, error) {
	var res []tasks.LogEntry
	_, err := c.get(ctx, c.url().
		setPath(api.LogsForTaskRoute).
		setPathParam("name", name).
		build(), &res)
	return res, err
}
