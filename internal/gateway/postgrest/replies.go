package postgrest

import (
	"context"
	"errors"
	"strconv"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
)

func (c *Client) replyColumns() string {
	cols := "id,confession_id,content,created_at,user_id"
	if c.Capabilities().ReplyNames {
		cols += ",name"
	}
	return cols
}

func (c *Client) QueryRepliesByPost(ctx context.Context, postID string, r gateway.Range, order gateway.Order) ([]models.Reply, error) {
	if postID == "" {
		return nil, errors.New("Confession id missing.")
	}
	if order == "" {
		order = gateway.OrderDesc
	}

	var rows []models.Reply
	res, err := c.r(ctx).
		SetQueryParam("select", c.replyColumns()).
		SetQueryParam("confession_id", "eq."+postID).
		SetQueryParam("order", "created_at."+string(order)).
		SetQueryParam("offset", strconv.Itoa(r.Offset)).
		SetQueryParam("limit", strconv.Itoa(r.Limit)).
		SetResult(&rows).
		Get(restPath + repliesTable)
	if err := check(res, err); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Reply{}
	}
	return rows, nil
}

func (c *Client) InsertReply(ctx context.Context, reply models.NewReply) (*models.Reply, error) {
	switch {
	case reply.ConfessionID == "":
		return nil, errors.New("Confession id missing.")
	case reply.Content == "":
		return nil, errors.New("Reply content missing.")
	case reply.UserID == "":
		return nil, errors.New("Anonymous session not ready.")
	}

	body := map[string]any{
		"confession_id": reply.ConfessionID,
		"content":       reply.Content,
		"user_id":       reply.UserID,
	}
	if c.Capabilities().ReplyNames {
		body["name"] = reply.Name
	}

	var row models.Reply
	res, err := c.r(ctx).
		SetHeader("Prefer", "return=representation").
		SetHeader("Accept", objectAccept).
		SetQueryParam("select", c.replyColumns()).
		SetBody(body).
		SetResult(&row).
		Post(restPath + repliesTable)
	if err := check(res, err); err != nil {
		return nil, err
	}
	return &row, nil
}
