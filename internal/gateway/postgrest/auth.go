package postgrest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/observability"

	"github.com/golang-jwt/jwt/v5"
)

// refreshMargin renews tokens slightly before they expire.
const refreshMargin = 30 * time.Second

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// session builds a session from the token response, falling back to the access
// token's own sub and exp claims. The token is not verified here; the server does that.
func (t tokenResponse) session(now time.Time) (*models.Session, error) {
	s := &models.Session{
		UserID:       t.User.ID,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}

	if s.UserID == "" || s.ExpiresAt.IsZero() {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(t.AccessToken, claims); err != nil {
			return nil, err
		}
		if s.UserID == "" {
			sub, err := claims.GetSubject()
			if err != nil {
				return nil, err
			}
			s.UserID = sub
		}
		if s.ExpiresAt.IsZero() {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				s.ExpiresAt = exp.Time
			}
		}
	}
	if s.UserID == "" {
		return nil, errors.New("postgrest: token response carries no user")
	}
	return s, nil
}

func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	session := c.session
	loaded := c.loaded
	c.mu.Unlock()

	if !loaded {
		stored, err := c.sessions.Load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if !c.loaded {
			c.session = stored
			c.loaded = true
		}
		session = c.session
		c.mu.Unlock()
	}

	if session == nil {
		return nil, nil
	}
	if !session.Expired(c.now().Add(refreshMargin)) {
		return session, nil
	}
	if session.RefreshToken == "" {
		c.setSession(ctx, nil, gateway.EventSignedOut)
		return nil, nil
	}

	refreshed, err := c.refresh(ctx, session.RefreshToken)
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && gwErr.Status >= http.StatusBadRequest && gwErr.Status < http.StatusInternalServerError {
			// The refresh token was rejected; the caller starts over with a new identity.
			observability.Logger.WarnContext(ctx, "[auth] refresh rejected", "code", gwErr.Code, "error", gwErr.Message)
			c.setSession(ctx, nil, gateway.EventSignedOut)
			return nil, nil
		}
		return nil, err
	}
	c.setSession(ctx, refreshed, gateway.EventTokenRefreshed)
	return refreshed, nil
}

func (c *Client) SignInAnonymously(ctx context.Context) (*models.Session, error) {
	var token tokenResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.anonKey).
		SetError(&apiError{}).
		SetBody(map[string]any{"data": map[string]any{}}).
		SetResult(&token).
		Post(authPath + "/signup")
	if err := check(res, err); err != nil {
		return nil, err
	}

	session, err := token.session(c.now())
	if err != nil {
		return nil, err
	}
	c.setSession(ctx, session, gateway.EventSignedIn)
	return session, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	var token tokenResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.anonKey).
		SetError(&apiError{}).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&token).
		Post(authPath + "/token")
	if err := check(res, err); err != nil {
		return nil, err
	}
	return token.session(c.now())
}

func (c *Client) setSession(ctx context.Context, session *models.Session, event gateway.SessionEvent) {
	c.mu.Lock()
	c.session = session
	c.loaded = true
	c.mu.Unlock()

	var err error
	if session == nil {
		err = c.sessions.Clear(ctx)
	} else {
		err = c.sessions.Save(ctx, session)
	}
	if err != nil {
		observability.Logger.WarnContext(ctx, "[auth] session persistence failed", "error", err)
	}

	c.listeners.Emit(event, session)
}

func (c *Client) OnSessionChange(fn gateway.SessionListener) *gateway.Subscription {
	return c.listeners.Add(fn)
}
