// Package testutil provides shared test doubles for the board's tests.
package testutil

import (
	"context"
	"sync"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
)

// GatewayStub is a gateway built from function fields. A nil field returns the zero
// result without error. Every call is counted by method name.
type GatewayStub struct {
	QueryPostsFn            func(context.Context, gateway.PostQuery) ([]models.Confession, error)
	CountPostsFn            func(context.Context, models.Visibility) (int, error)
	InsertPostFn            func(context.Context, models.NewConfession) (*models.Confession, error)
	DeletePostFn            func(context.Context, string) error
	QueryLatestPostByUserFn func(context.Context, string) (*models.Confession, error)
	QueryRepliesByPostFn    func(context.Context, string, gateway.Range, gateway.Order) ([]models.Reply, error)
	InsertReplyFn           func(context.Context, models.NewReply) (*models.Reply, error)
	GetSessionFn            func(context.Context) (*models.Session, error)
	SignInAnonymouslyFn     func(context.Context) (*models.Session, error)

	Listeners gateway.Listeners

	mu    sync.Mutex
	calls map[string]int
}

func (s *GatewayStub) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
}

// Calls returns how many times the named method ran.
func (s *GatewayStub) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *GatewayStub) QueryPosts(ctx context.Context, q gateway.PostQuery) ([]models.Confession, error) {
	s.record("QueryPosts")
	if s.QueryPostsFn == nil {
		return []models.Confession{}, nil
	}
	return s.QueryPostsFn(ctx, q)
}

func (s *GatewayStub) CountPosts(ctx context.Context, visibility models.Visibility) (int, error) {
	s.record("CountPosts")
	if s.CountPostsFn == nil {
		return 0, nil
	}
	return s.CountPostsFn(ctx, visibility)
}

func (s *GatewayStub) InsertPost(ctx context.Context, post models.NewConfession) (*models.Confession, error) {
	s.record("InsertPost")
	if s.InsertPostFn == nil {
		return nil, nil
	}
	return s.InsertPostFn(ctx, post)
}

func (s *GatewayStub) DeletePost(ctx context.Context, id string) error {
	s.record("DeletePost")
	if s.DeletePostFn == nil {
		return nil
	}
	return s.DeletePostFn(ctx, id)
}

func (s *GatewayStub) QueryLatestPostByUser(ctx context.Context, userID string) (*models.Confession, error) {
	s.record("QueryLatestPostByUser")
	if s.QueryLatestPostByUserFn == nil {
		return nil, nil
	}
	return s.QueryLatestPostByUserFn(ctx, userID)
}

func (s *GatewayStub) QueryRepliesByPost(ctx context.Context, postID string, r gateway.Range, order gateway.Order) ([]models.Reply, error) {
	s.record("QueryRepliesByPost")
	if s.QueryRepliesByPostFn == nil {
		return []models.Reply{}, nil
	}
	return s.QueryRepliesByPostFn(ctx, postID, r, order)
}

func (s *GatewayStub) InsertReply(ctx context.Context, reply models.NewReply) (*models.Reply, error) {
	s.record("InsertReply")
	if s.InsertReplyFn == nil {
		return nil, nil
	}
	return s.InsertReplyFn(ctx, reply)
}

func (s *GatewayStub) GetSession(ctx context.Context) (*models.Session, error) {
	s.record("GetSession")
	if s.GetSessionFn == nil {
		return nil, nil
	}
	return s.GetSessionFn(ctx)
}

func (s *GatewayStub) SignInAnonymously(ctx context.Context) (*models.Session, error) {
	s.record("SignInAnonymously")
	if s.SignInAnonymouslyFn == nil {
		return nil, nil
	}
	return s.SignInAnonymouslyFn(ctx)
}

func (s *GatewayStub) OnSessionChange(fn gateway.SessionListener) *gateway.Subscription {
	return s.Listeners.Add(fn)
}

// StaticSession returns a GetSession function that always reports userID.
func StaticSession(userID string) func(context.Context) (*models.Session, error) {
	return func(context.Context) (*models.Session, error) {
		return &models.Session{UserID: userID, AccessToken: "token-" + userID}, nil
	}
}
