package gateway

import (
	"context"

	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Instrument wraps gw so every call opens a span and records its latency.
func Instrument(gw Gateway) Gateway {
	if _, ok := gw.(*instrumented); ok {
		return gw
	}
	return &instrumented{next: gw}
}

type instrumented struct {
	next Gateway
}

func observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "gateway."+op, attrs...)
	track := observability.TrackGateway(op)
	return ctx, func(err error) {
		track(err)
		observability.EndSpan(span, err)
	}
}

func (g *instrumented) QueryPosts(ctx context.Context, q PostQuery) (rows []models.Confession, err error) {
	ctx, done := observe(ctx, "query_posts",
		attribute.Int("range.offset", q.Range.Offset),
		attribute.Int("range.limit", q.Range.Limit),
	)
	defer func() { done(err) }()
	return g.next.QueryPosts(ctx, q)
}

func (g *instrumented) CountPosts(ctx context.Context, visibility models.Visibility) (n int, err error) {
	ctx, done := observe(ctx, "count_posts")
	defer func() { done(err) }()
	return g.next.CountPosts(ctx, visibility)
}

func (g *instrumented) InsertPost(ctx context.Context, post models.NewConfession) (row *models.Confession, err error) {
	ctx, done := observe(ctx, "insert_post")
	defer func() { done(err) }()
	return g.next.InsertPost(ctx, post)
}

func (g *instrumented) DeletePost(ctx context.Context, id string) (err error) {
	ctx, done := observe(ctx, "delete_post", attribute.String("post.id", id))
	defer func() { done(err) }()
	return g.next.DeletePost(ctx, id)
}

func (g *instrumented) QueryLatestPostByUser(ctx context.Context, userID string) (row *models.Confession, err error) {
	ctx, done := observe(ctx, "query_latest_post")
	defer func() { done(err) }()
	return g.next.QueryLatestPostByUser(ctx, userID)
}

func (g *instrumented) QueryRepliesByPost(ctx context.Context, postID string, r Range, order Order) (rows []models.Reply, err error) {
	ctx, done := observe(ctx, "query_replies",
		attribute.String("post.id", postID),
		attribute.Int("range.offset", r.Offset),
		attribute.Int("range.limit", r.Limit),
	)
	defer func() { done(err) }()
	return g.next.QueryRepliesByPost(ctx, postID, r, order)
}

func (g *instrumented) InsertReply(ctx context.Context, reply models.NewReply) (row *models.Reply, err error) {
	ctx, done := observe(ctx, "insert_reply", attribute.String("post.id", reply.ConfessionID))
	defer func() { done(err) }()
	return g.next.InsertReply(ctx, reply)
}

func (g *instrumented) GetSession(ctx context.Context) (s *models.Session, err error) {
	ctx, done := observe(ctx, "get_session")
	defer func() { done(err) }()
	return g.next.GetSession(ctx)
}

func (g *instrumented) SignInAnonymously(ctx context.Context) (s *models.Session, err error) {
	ctx, done := observe(ctx, "sign_in_anonymously")
	defer func() { done(err) }()
	return g.next.SignInAnonymously(ctx)
}

func (g *instrumented) OnSessionChange(fn SessionListener) *Subscription {
	return g.next.OnSessionChange(fn)
}
