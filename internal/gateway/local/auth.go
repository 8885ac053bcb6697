package local

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "ventboard-local"

func (g *Gateway) issue(userID string) (*models.Session, error) {
	now := g.now()
	expiresAt := now.Add(g.opts.SessionTTL)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": "anon",
		"iss":  issuer,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"jti":  uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(g.opts.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &models.Session{
		UserID:       userID,
		AccessToken:  signed,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    expiresAt,
	}, nil
}

// verify checks the token signature and expiry and returns its subject.
func (g *Gateway) verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(g.opts.JWTSecret), nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(g.now))
	if err != nil {
		return "", err
	}
	return token.Claims.GetSubject()
}

func (g *Gateway) GetSession(ctx context.Context) (*models.Session, error) {
	g.mu.Lock()
	session := g.session
	loaded := g.loaded
	g.mu.Unlock()

	if !loaded {
		stored, err := g.opts.Sessions.Load(ctx)
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		if !g.loaded {
			g.session = stored
			g.loaded = true
		}
		session = g.session
		g.mu.Unlock()
	}
	if session == nil {
		return nil, nil
	}

	sub, err := g.verify(session.AccessToken)
	switch {
	case err == nil && sub == session.UserID:
		return session, nil
	case errors.Is(err, jwt.ErrTokenExpired) && session.RefreshToken != "":
		refreshed, err := g.issue(session.UserID)
		if err != nil {
			return nil, err
		}
		g.setSession(ctx, refreshed, gateway.EventTokenRefreshed)
		return refreshed, nil
	default:
		observability.Logger.WarnContext(ctx, "[auth] discarding invalid session", "error", err)
		g.setSession(ctx, nil, gateway.EventSignedOut)
		return nil, nil
	}
}

func (g *Gateway) SignInAnonymously(ctx context.Context) (*models.Session, error) {
	session, err := g.issue(uuid.NewString())
	if err != nil {
		return nil, err
	}
	g.setSession(ctx, session, gateway.EventSignedIn)
	return session, nil
}

func (g *Gateway) setSession(ctx context.Context, session *models.Session, event gateway.SessionEvent) {
	g.mu.Lock()
	g.session = session
	g.loaded = true
	g.mu.Unlock()

	var err error
	if session == nil {
		err = g.opts.Sessions.Clear(ctx)
	} else {
		err = g.opts.Sessions.Save(ctx, session)
	}
	if err != nil {
		observability.Logger.WarnContext(ctx, "[auth] session persistence failed", "error", err)
	}

	g.listeners.Emit(event, session)
}

func (g *Gateway) OnSessionChange(fn gateway.SessionListener) *gateway.Subscription {
	return g.listeners.Add(fn)
}
