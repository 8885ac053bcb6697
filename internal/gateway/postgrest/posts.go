package postgrest

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"

	"github.com/samber/lo"
)

type replyCount struct {
	Count int `json:"count"`
}

type confessionRow struct {
	models.Confession
	Replies []replyCount `json:"confession_replies,omitempty"`
}

func (r confessionRow) model() models.Confession {
	out := r.Confession
	if len(r.Replies) > 0 {
		n := r.Replies[0].Count
		out.ReplyCount = &n
	}
	return out
}

func (c *Client) postColumns(withCounts bool) string {
	caps := c.Capabilities()
	cols := []string{"id", "content", "created_at", "visibility"}
	if caps.PostNames {
		cols = append(cols, "name")
	}
	if withCounts && caps.ReplyCounts {
		cols = append(cols, "confession_replies(count)")
	}
	return strings.Join(cols, ",")
}

func (c *Client) QueryPosts(ctx context.Context, q gateway.PostQuery) ([]models.Confession, error) {
	visibility := q.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	var rows []confessionRow
	res, err := c.r(ctx).
		SetQueryParam("select", c.postColumns(true)).
		SetQueryParam("visibility", "eq."+string(visibility)).
		SetQueryParam("order", "created_at.desc").
		SetQueryParam("offset", strconv.Itoa(q.Range.Offset)).
		SetQueryParam("limit", strconv.Itoa(q.Range.Limit)).
		SetResult(&rows).
		Get(restPath + confessionsTable)
	if err := check(res, err); err != nil {
		return nil, err
	}

	return lo.Map(rows, func(r confessionRow, _ int) models.Confession { return r.model() }), nil
}

func (c *Client) CountPosts(ctx context.Context, visibility models.Visibility) (int, error) {
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	res, err := c.r(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParam("select", "id").
		SetQueryParam("visibility", "eq."+string(visibility)).
		SetQueryParam("limit", "0").
		Get(restPath + confessionsTable)
	if err := check(res, err); err != nil {
		return 0, err
	}
	return parseContentRangeTotal(res.Header().Get("Content-Range"))
}

// parseContentRangeTotal reads the total from a "0-11/42" or "*/42" header.
func parseContentRangeTotal(header string) (int, error) {
	i := strings.LastIndexByte(header, '/')
	if i < 0 || header[i+1:] == "*" {
		return 0, errors.New("postgrest: missing total in Content-Range")
	}
	return strconv.Atoi(header[i+1:])
}

func (c *Client) InsertPost(ctx context.Context, post models.NewConfession) (*models.Confession, error) {
	body := map[string]any{
		"content":    post.Content,
		"visibility": post.Visibility,
		"user_id":    post.UserID,
	}
	if c.Capabilities().PostNames {
		body["name"] = post.Name
	}

	var row confessionRow
	res, err := c.r(ctx).
		SetHeader("Prefer", "return=representation").
		SetHeader("Accept", objectAccept).
		SetQueryParam("select", c.postColumns(false)).
		SetBody(body).
		SetResult(&row).
		Post(restPath + confessionsTable)
	if err := check(res, err); err != nil {
		return nil, err
	}

	out := row.model()
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	var rows []struct {
		ID string `json:"id"`
	}
	res, err := c.r(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+id).
		SetQueryParam("select", "id").
		SetResult(&rows).
		Delete(restPath + confessionsTable)
	if err := check(res, err); err != nil {
		return err
	}
	// Row level security hides rows the caller may not delete, so both a missing row
	// and someone else's row come back as an empty result.
	if len(rows) == 0 {
		return &gateway.Error{
			Code:    "PGRST116",
			Message: "Confession not found or not owned by this session.",
			Status:  res.StatusCode(),
		}
	}
	return nil
}

func (c *Client) QueryLatestPostByUser(ctx context.Context, userID string) (*models.Confession, error) {
	var rows []confessionRow
	res, err := c.r(ctx).
		SetQueryParam("select", c.postColumns(false)).
		SetQueryParam("user_id", "eq."+userID).
		SetQueryParam("order", "created_at.desc").
		SetQueryParam("limit", "1").
		SetResult(&rows).
		Get(restPath + confessionsTable)
	if err := check(res, err); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := rows[0].model()
	return &out, nil
}
