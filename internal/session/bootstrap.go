// Package session establishes the anonymous identity the board posts under and keeps
// the store's user id in step with the gateway's session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/observability"
	"github.com/Rylogix/VentBoard/internal/state"
	"github.com/Rylogix/VentBoard/internal/store"
)

// FailedMessage is published as the auth error when bootstrap fails.
const FailedMessage = "Unable to connect. Refresh and try again."

// ErrSessionMissing is the cause reported when sign-in succeeded without a session.
var ErrSessionMissing = errors.New("anonymous session missing")

// Phase is a bootstrap state.
type Phase int

const (
	Idle Phase = iota
	Checking
	SigningIn
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Checking:
		return "checking"
	case SigningIn:
		return "signing_in"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Hydrator restores the cooldown for a user once their session is ready.
type Hydrator interface {
	HydrateCooldown(ctx context.Context, userID string)
}

// Bootstrap runs Idle → Checking → (SigningIn) → Ready | Failed once per Start.
type Bootstrap struct {
	auth    gateway.Auth
	store   *store.Store[state.State]
	hydrate Hydrator
	logger  *slog.Logger

	mu    sync.Mutex
	phase Phase
	sub   *gateway.Subscription
	wg    sync.WaitGroup
}

// New returns an idle bootstrap. auth may be nil, in which case Start always fails.
func New(auth gateway.Auth, st *store.Store[state.State], hydrate Hydrator, logger *slog.Logger) *Bootstrap {
	if logger == nil {
		logger = observability.Logger
	}
	return &Bootstrap{auth: auth, store: st, hydrate: hydrate, logger: logger}
}

// Phase returns the current state.
func (b *Bootstrap) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

func (b *Bootstrap) enter(p Phase) {
	b.mu.Lock()
	b.phase = p
	b.mu.Unlock()
}

func (b *Bootstrap) fail(ctx context.Context, err error) error {
	b.logger.ErrorContext(ctx, "[auth] bootstrap failed", "error", err)
	b.enter(Failed)
	b.store.Patch(func(s *state.State) {
		s.AuthLoading = false
		s.AuthError = FailedMessage
		s.IsAuthReady = false
	})
	return models.NewAuthNotReadyError(FailedMessage, err)
}

// Start checks for an existing session, signs in anonymously when there is none and
// publishes the user. Failure is terminal for this run; calling Start again is the only
// retry. Cooldown hydration runs in the background; Wait blocks until it is done.
func (b *Bootstrap) Start(ctx context.Context) error {
	b.enter(Checking)
	b.store.Patch(func(s *state.State) {
		s.AuthLoading = true
		s.AuthError = ""
		s.IsAuthReady = false
	})

	if b.auth == nil {
		return b.fail(ctx, errors.New("gateway client missing"))
	}

	b.logger.DebugContext(ctx, "[auth] checking session")
	session, err := b.auth.GetSession(ctx)
	if err != nil {
		return b.fail(ctx, err)
	}
	b.logger.DebugContext(ctx, "[auth] session exists", "exists", session != nil)

	if session == nil || session.UserID == "" {
		b.enter(SigningIn)
		b.logger.InfoContext(ctx, "[auth] signing in anonymously")
		session, err = b.auth.SignInAnonymously(ctx)
		if err != nil {
			return b.fail(ctx, err)
		}

		if session == nil || session.UserID == "" {
			session, err = b.auth.GetSession(ctx)
			if err != nil {
				return b.fail(ctx, err)
			}
			b.logger.DebugContext(ctx, "[auth] session after re-check", "exists", session != nil)
		}
	}

	if session == nil || session.UserID == "" {
		return b.fail(ctx, ErrSessionMissing)
	}

	b.publish(session.UserID)
	b.enter(Ready)
	b.logger.InfoContext(ctx, "[auth] ready", "user_id", session.UserID)

	if b.hydrate != nil {
		userID := session.UserID
		hydrateCtx := observability.WithUserID(context.WithoutCancel(ctx), userID)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.hydrate.HydrateCooldown(hydrateCtx, userID)
		}()
	}
	return nil
}

func (b *Bootstrap) publish(userID string) {
	b.store.Patch(func(s *state.State) {
		s.UserID = userID
		s.AuthLoading = false
		s.AuthError = ""
		s.IsAuthReady = true
	})
}

// Listen republishes the user on every session change that carries one, such as a token
// refresh. It is independent of the Start state machine. Calling it twice is a no-op.
func (b *Bootstrap) Listen() {
	if b.auth == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return
	}
	b.sub = b.auth.OnSessionChange(func(event gateway.SessionEvent, session *models.Session) {
		if session == nil || session.UserID == "" {
			return
		}
		b.logger.Info("[auth] state change", "event", string(event), "user_id", session.UserID)
		b.publish(session.UserID)
	})
}

// Wait blocks until background hydration started by Start has finished.
func (b *Bootstrap) Wait() {
	b.wg.Wait()
}

// Close stops listening for session changes and waits for background work.
func (b *Bootstrap) Close() {
	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	sub.Unsubscribe()
	b.wg.Wait()
}
