// Package actions coordinates the board's user intents: feed pagination, confession
// submission with cooldown tracking, reply threads and undo. It is the only writer of
// the application store.
package actions

import (
	"context"
	"log/slog"
	"time"

	"github.com/Rylogix/VentBoard/internal/cooldown"
	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/observability"
	"github.com/Rylogix/VentBoard/internal/state"
	"github.com/Rylogix/VentBoard/internal/store"
)

// User-facing messages.
const (
	DefaultError      = "We could not reach the confession stream."
	AuthError         = "Unable to connect. Refresh and try again."
	ConnectingMessage = "Still connecting. Try again in a moment."
	TryLaterMessage   = "Please try again later."
	SubmitFailed      = "Submission failed. Please try again."
	UndoFailed        = "Undo failed. Please try again."
	RepliesFailed     = "We could not load replies."
	ReplyFailed       = "Reply failed. Please try again."
	EmptyContent      = "Write something before posting."
	EmptyReply        = "Write a reply before sending."
	BlockedContent    = "Please remove offensive language before posting."
	BlockedName       = "Please choose a different name."
	MissingPostID     = "Confession id missing."
	AlreadySubmitting = "Your last submission is still being sent."
)

// DefaultPageSize is the feed page size when none is configured.
const DefaultPageSize = 12

// Options configures a Coordinator.
type Options struct {
	PageSize   int
	ReplyOrder gateway.Order
	// Capabilities decides which optional columns are written.
	Capabilities gateway.Capabilities
	// ConfigError, when set, disables every gateway call and is published to the store.
	ConfigError string
	Cooldowns   *cooldown.Cache
	Logger      *slog.Logger
	Now         func() time.Time
}

// Coordinator turns user intents into gateway calls and store updates.
type Coordinator struct {
	store     *store.Store[state.State]
	gw        gateway.Gateway
	cooldowns *cooldown.Cache
	logger    *slog.Logger
	opts      Options
}

// New returns a coordinator writing to st. gw may be nil only when opts.ConfigError is set.
func New(st *store.Store[state.State], gw gateway.Gateway, opts Options) *Coordinator {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.ReplyOrder == "" {
		opts.ReplyOrder = gateway.OrderDesc
	}
	if opts.Logger == nil {
		opts.Logger = observability.Logger
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.ConfigError != "" {
		st.Patch(func(s *state.State) { s.ConfigError = opts.ConfigError })
	}

	return &Coordinator{
		store:     st,
		gw:        gw,
		cooldowns: opts.Cooldowns,
		logger:    opts.Logger,
		opts:      opts,
	}
}

// Store returns the store the coordinator writes to.
func (c *Coordinator) Store() *store.Store[state.State] {
	return c.store
}

// PageSize returns the feed page size.
func (c *Coordinator) PageSize() int {
	return c.opts.PageSize
}

func (c *Coordinator) now() time.Time {
	return c.opts.Now()
}

func (c *Coordinator) configError() *models.AppError {
	if c.opts.ConfigError == "" {
		return nil
	}
	return models.NewConfigurationError(c.opts.ConfigError)
}

// liveSession re-reads the session from the gateway and reconciles the published user id
// with it.
func (c *Coordinator) liveSession(ctx context.Context) (*models.Session, *models.AppError) {
	session, err := c.gw.GetSession(ctx)
	if err != nil {
		return nil, models.NewAuthNotReadyError(gateway.Message(err, AuthError), err)
	}
	if session == nil || session.UserID == "" {
		c.store.Patch(func(s *state.State) {
			s.UserID = ""
			s.IsAuthReady = false
		})
		return nil, models.NewAuthNotReadyError(ConnectingMessage, nil)
	}

	c.store.UpdateIf(func(prev state.State) (state.State, bool) {
		if prev.UserID == session.UserID {
			return prev, false
		}
		c.logger.InfoContext(ctx, "[auth] session user changed", "previous", prev.UserID, "current", session.UserID)
		next := prev
		next.UserID = session.UserID
		next.IsAuthReady = true
		next.AuthError = ""
		return next, true
	})
	return session, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
