package client

import (
	"context"

	"github.com/neiii/stargate-better-auth/internal/api"
	"github.com/neiii/stargate-better-auth/internal/core"
)

// ListRecords retrieves all verification records from the server.
func (c *Client) ListRecords(ctx context.Context) ([]core.VerificationRecord, string, error) {
	var records []core.VerificationRecord
	correlation, err := c.get(ctx, c.url().
		setPath(api.ListRecordsRoute).
		build(), &records)
	return records, correlation, err
}

type ListAuditsOpts struct {
	Limit uint

	CorrelationID string
	UserID        string
	Action        string
}

// ListAudits retrieves the latest audit entries from the server, limited to the specified number.
func (c *Client) ListAudits(ctx context.Context, opts ListAuditsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.CorrelationID != "" {
		ub = ub.addQueryParam("correlation_id", opts.CorrelationID)
	}
	if opts.UserID != "" {
		ub = ub.addQueryParam("user_id", opts.UserID)
	}
	if opts.Action != "" {
		ub = ub.addQueryParam("action", opts.Action)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}
