package actions

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/moderation"
	"github.com/Rylogix/VentBoard/internal/observability"
	"github.com/Rylogix/VentBoard/internal/state"

	"github.com/samber/lo"
)

// Reply page sizes. The next page's limit targets replyTargetChars of text per page.
const (
	MinReplyLimit    = 3
	MaxReplyLimit    = 5
	replyTargetChars = 480
)

// ReplyInput is a reply as typed by the user.
type ReplyInput struct {
	PostID  string
	Content string
	Name    string
}

// NextReplyLimit sizes the next reply page from the average length of the replies
// loaded so far: longer replies mean fewer per page.
func NextReplyLimit(items []models.Reply) int {
	if len(items) == 0 {
		return MaxReplyLimit
	}
	chars := lo.SumBy(items, func(r models.Reply) int { return utf8.RuneCountInString(r.Content) })
	avg := float64(chars) / float64(len(items))
	if avg <= 0 {
		return MaxReplyLimit
	}
	limit := int(math.Round(replyTargetChars / avg))
	return min(max(limit, MinReplyLimit), MaxReplyLimit)
}

// openExclusive opens confessionID's thread, optionally with its composer, and closes
// every other thread and composer. It reports whether the thread still needs its first
// load.
func (c *Coordinator) openExclusive(confessionID string, composer bool) bool {
	var needsLoad bool
	c.store.Patch(func(s *state.State) {
		next := make(map[string]state.ReplyThread, len(s.Replies)+1)
		for id, t := range s.Replies {
			if id != confessionID {
				t.IsOpen = false
				t.IsComposerOpen = false
			}
			next[id] = t
		}
		t := next[confessionID]
		t.IsOpen = true
		if composer {
			t.IsComposerOpen = true
		}
		next[confessionID] = t
		s.Replies = next
		needsLoad = !t.HasLoaded && !t.Busy()
	})
	return needsLoad
}

// OpenReplies shows confessionID's thread, hiding any other, and loads it the first time.
func (c *Coordinator) OpenReplies(ctx context.Context, confessionID string) error {
	if confessionID == "" {
		return models.NewValidationError(MissingPostID)
	}
	if c.openExclusive(confessionID, false) {
		return c.LoadReplies(ctx, confessionID, true)
	}
	return nil
}

// OpenComposer shows confessionID's thread with its reply composer.
func (c *Coordinator) OpenComposer(ctx context.Context, confessionID string) error {
	if confessionID == "" {
		return models.NewValidationError(MissingPostID)
	}
	if c.openExclusive(confessionID, true) {
		return c.LoadReplies(ctx, confessionID, true)
	}
	return nil
}

// CloseComposer hides the composer and leaves the thread open.
func (c *Coordinator) CloseComposer(confessionID string) {
	c.patchThread(confessionID, func(t *state.ReplyThread) { t.IsComposerOpen = false })
}

// ToggleReplies opens a closed thread (as OpenReplies) or hides an open one. Hiding
// keeps the loaded replies.
func (c *Coordinator) ToggleReplies(ctx context.Context, confessionID string) error {
	if confessionID == "" {
		return models.NewValidationError(MissingPostID)
	}
	if !c.store.GetState().Thread(confessionID).IsOpen {
		return c.OpenReplies(ctx, confessionID)
	}
	c.patchThread(confessionID, func(t *state.ReplyThread) { t.IsOpen = false })
	return nil
}

func (c *Coordinator) patchThread(confessionID string, fn func(*state.ReplyThread)) {
	c.store.Patch(func(s *state.State) {
		t := s.Thread(confessionID)
		fn(&t)
		s.Replies = s.WithThread(confessionID, t)
	})
}

// LoadReplies fetches a page of confessionID's replies. reset starts over from the first
// reply and replaces the items; otherwise the page at the current cursor is appended.
// A load already in flight for the thread makes this a no-op.
func (c *Coordinator) LoadReplies(ctx context.Context, confessionID string, reset bool) error {
	if confessionID == "" {
		return models.NewValidationError(MissingPostID)
	}
	if appErr := c.configError(); appErr != nil {
		c.patchThread(confessionID, func(t *state.ReplyThread) { t.Error = appErr.Message })
		return appErr
	}

	var r gateway.Range
	tx, ok := c.begin(func(s state.State) bool {
		return !s.Thread(confessionID).Busy()
	}, func(s *state.State) {
		t := s.Thread(confessionID)
		t.Error = ""
		if reset {
			t.Loading = true
			r = gateway.Range{Offset: 0, Limit: MaxReplyLimit}
		} else {
			t.LoadingMore = true
			limit := t.Page.Limit
			if limit <= 0 {
				limit = NextReplyLimit(t.Items)
			}
			r = gateway.Range{Offset: t.Page.Offset, Limit: limit}
		}
		s.Replies = s.WithThread(confessionID, t)
	})
	if !ok {
		return nil
	}

	rows, err := c.gw.QueryRepliesByPost(ctx, confessionID, r, c.opts.ReplyOrder)
	if err != nil {
		message := gateway.Message(err, RepliesFailed)
		tx.rollback(func(s *state.State) {
			t := s.Thread(confessionID)
			t.Loading = false
			t.LoadingMore = false
			t.Error = message
			s.Replies = s.WithThread(confessionID, t)
		})
		return models.NewTransportError(message, err)
	}

	tx.commit(func(s *state.State) {
		t := s.Thread(confessionID)
		if reset {
			t.Items = rows
		} else {
			merged := append(append([]models.Reply{}, t.Items...), rows...)
			t.Items = lo.UniqBy(merged, func(reply models.Reply) string { return reply.ID })
		}
		t.Loading = false
		t.LoadingMore = false
		t.HasLoaded = true
		t.Page = state.Page{
			Offset:  r.Offset + len(rows),
			Limit:   NextReplyLimit(t.Items),
			HasMore: len(rows) == r.Limit,
		}
		s.Replies = s.WithThread(confessionID, t)
	})
	return nil
}

// LoadMoreReplies appends the next page of a loaded, idle thread that has more replies.
func (c *Coordinator) LoadMoreReplies(ctx context.Context, confessionID string) error {
	t := c.store.GetState().Thread(confessionID)
	if !t.HasLoaded || t.Busy() || !t.Page.HasMore {
		return nil
	}
	return c.LoadReplies(ctx, confessionID, false)
}

func (c *Coordinator) rejectReply(confessionID string, appErr *models.AppError) error {
	if confessionID != "" {
		c.patchThread(confessionID, func(t *state.ReplyThread) { t.Error = appErr.Message })
	}
	observability.ReplySubmissions.WithLabelValues(strings.ToLower(appErr.Code)).Inc()
	return appErr
}

func validateReply(in ReplyInput) (string, *string, *models.AppError) {
	if strings.TrimSpace(in.PostID) == "" {
		return "", nil, models.NewValidationError(MissingPostID)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return "", nil, models.NewValidationError(EmptyReply)
	}
	if moderation.ContainsSlur(content) {
		return "", nil, models.NewValidationError(BlockedContent)
	}
	name, appErr := validateName(in.Name)
	if appErr != nil {
		return "", nil, appErr
	}
	return content, name, nil
}

// SubmitReply posts a reply and merges it into the thread at the position the reply
// order gives it. Replies have no cooldown.
func (c *Coordinator) SubmitReply(ctx context.Context, in ReplyInput) (*models.Reply, error) {
	if appErr := c.configError(); appErr != nil {
		return nil, c.rejectReply(in.PostID, appErr)
	}
	content, name, appErr := validateReply(in)
	if appErr != nil {
		return nil, c.rejectReply(in.PostID, appErr)
	}
	if c.store.GetState().UserID == "" {
		return nil, c.rejectReply(in.PostID, models.NewAuthNotReadyError(ConnectingMessage, nil))
	}

	id := in.PostID
	tx, ok := c.begin(func(s state.State) bool {
		return !s.Thread(id).Submitting
	}, func(s *state.State) {
		t := s.Thread(id)
		t.Submitting = true
		t.Error = ""
		s.Replies = s.WithThread(id, t)
	})
	if !ok {
		return nil, c.rejectReply(id, models.NewValidationError(AlreadySubmitting))
	}
	fail := func(appErr *models.AppError) error {
		tx.rollback(func(s *state.State) {
			t := s.Thread(id)
			t.Submitting = false
			t.Error = appErr.Message
			s.Replies = s.WithThread(id, t)
		})
		observability.ReplySubmissions.WithLabelValues(strings.ToLower(appErr.Code)).Inc()
		return appErr
	}

	session, appErr := c.liveSession(ctx)
	if appErr != nil {
		return nil, fail(appErr)
	}

	reply := models.NewReply{ConfessionID: id, Content: content, UserID: session.UserID}
	if c.opts.Capabilities.ReplyNames {
		reply.Name = name
	}

	row, err := c.gw.InsertReply(ctx, reply)
	if err == nil && row == nil {
		err = errors.New("insert returned no row")
	}
	if err != nil {
		message := gateway.Message(err, ReplyFailed)
		c.logger.ErrorContext(ctx, "reply insert failed", "confession_id", id, "error", err)
		if gateway.IsPermissionDenied(err) {
			return nil, fail(models.NewPermissionDeniedError(message, err))
		}
		return nil, fail(models.NewTransportError(message, err))
	}

	tx.commit(func(s *state.State) {
		t := s.Thread(id)
		t.Submitting = false
		t.Error = ""
		switch {
		case c.opts.ReplyOrder != gateway.OrderAsc:
			t.Items = append([]models.Reply{*row}, t.Items...)
			t.Page.Offset++
		case !t.Page.HasMore:
			// Oldest first: the reply sorts last and is only visible once the thread is
			// fully loaded; otherwise a later page brings it in.
			t.Items = append(append([]models.Reply{}, t.Items...), *row)
			t.Page.Offset++
		}
		s.Replies = s.WithThread(id, t)

		s.Confessions = lo.Map(s.Confessions, func(conf models.Confession, _ int) models.Confession {
			if conf.ID == id && conf.ReplyCount != nil {
				n := *conf.ReplyCount + 1
				conf.ReplyCount = &n
			}
			return conf
		})
	})
	observability.ReplySubmissions.WithLabelValues("ok").Inc()
	return row, nil
}
