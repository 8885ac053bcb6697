package actions

import (
	"context"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/observability"
	"github.com/Rylogix/VentBoard/internal/state"

	"github.com/samber/lo"
)

func publicOnly(rows []models.Confession) []models.Confession {
	return lo.Filter(rows, func(row models.Confession, _ int) bool {
		return row.Visibility == "" || row.Visibility == models.VisibilityPublic
	})
}

// LoadInitial resets the feed and fetches its first page. It does nothing when the
// gateway is misconfigured.
func (c *Coordinator) LoadInitial(ctx context.Context) error {
	if appErr := c.configError(); appErr != nil {
		return appErr
	}

	limit := c.opts.PageSize
	tx, _ := c.begin(nil, func(s *state.State) {
		s.Loading = true
		s.Error = ""
		s.Confessions = []models.Confession{}
		s.Page = state.Page{Offset: 0, Limit: limit, HasMore: true}
	})

	rows, err := c.gw.QueryPosts(ctx, gateway.PostQuery{
		Visibility: models.VisibilityPublic,
		Range:      gateway.Range{Offset: 0, Limit: limit},
	})
	observability.FeedPages.WithLabelValues("initial", outcome(err)).Inc()
	if err != nil {
		message := gateway.Message(err, DefaultError)
		tx.rollback(func(s *state.State) {
			s.Loading = false
			s.Error = message
		})
		return models.NewTransportError(message, err)
	}

	tx.commit(func(s *state.State) {
		s.Loading = false
		s.Confessions = publicOnly(rows)
		s.Page = state.Page{Offset: len(rows), Limit: limit, HasMore: len(rows) == limit}
	})
	return nil
}

// LoadMore appends the next page. It does nothing while another page is loading or once
// the feed is exhausted.
func (c *Coordinator) LoadMore(ctx context.Context) error {
	if appErr := c.configError(); appErr != nil {
		return appErr
	}

	var page state.Page
	tx, ok := c.begin(func(s state.State) bool {
		return !s.Loading && !s.LoadingMore && s.Page.HasMore
	}, func(s *state.State) {
		page = s.Page
		s.LoadingMore = true
		s.Error = ""
	})
	if !ok {
		return nil
	}
	if page.Limit <= 0 {
		page.Limit = c.opts.PageSize
	}

	rows, err := c.gw.QueryPosts(ctx, gateway.PostQuery{
		Visibility: models.VisibilityPublic,
		Range:      gateway.Range{Offset: page.Offset, Limit: page.Limit},
	})
	observability.FeedPages.WithLabelValues("more", outcome(err)).Inc()
	if err != nil {
		message := gateway.Message(err, DefaultError)
		tx.rollback(func(s *state.State) {
			s.LoadingMore = false
			s.Error = message
		})
		return models.NewTransportError(message, err)
	}

	tx.commit(func(s *state.State) {
		s.LoadingMore = false
		s.Confessions = append(append([]models.Confession{}, s.Confessions...), publicOnly(rows)...)
		s.Page.Offset += len(rows)
		s.Page.HasMore = len(rows) == page.Limit
	})
	return nil
}

// RefreshTotal fetches the number of public confessions for display. Pagination never
// depends on it.
func (c *Coordinator) RefreshTotal(ctx context.Context) error {
	if appErr := c.configError(); appErr != nil {
		return appErr
	}
	total, err := c.gw.CountPosts(ctx, models.VisibilityPublic)
	if err != nil {
		return models.NewTransportError(gateway.Message(err, DefaultError), err)
	}
	c.store.Patch(func(s *state.State) { s.Total = &total })
	return nil
}
