package postgrest

import (
	"context"
	"errors"
	"net/http"

	"github.com/Rylogix/VentBoard/internal/gateway"
)

// Negotiate probes the schema for the optional columns and relationships. A probe
// rejected with 400 means the column is missing; any other failure aborts.
func (c *Client) Negotiate(ctx context.Context) (gateway.Capabilities, error) {
	var caps gateway.Capabilities
	var err error

	if caps.PostNames, err = c.probe(ctx, confessionsTable, "id,name"); err != nil {
		return caps, err
	}
	if caps.ReplyNames, err = c.probe(ctx, repliesTable, "id,name"); err != nil {
		return caps, err
	}
	if caps.ReplyCounts, err = c.probe(ctx, confessionsTable, "id,confession_replies(count)"); err != nil {
		return caps, err
	}
	return caps, nil
}

func (c *Client) probe(ctx context.Context, table, columns string) (bool, error) {
	res, err := c.r(ctx).
		SetQueryParam("select", columns).
		SetQueryParam("limit", "0").
		Get(restPath + table)
	err = check(res, err)
	if err == nil {
		return true, nil
	}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Status == http.StatusBadRequest {
		return false, nil
	}
	return false, err
}
