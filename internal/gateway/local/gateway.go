package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Options configures the local gateway's policy and sessions.
type Options struct {
	JWTSecret string
	// Cooldown is the minimum interval between two confessions by one user. Zero disables it.
	Cooldown time.Duration
	// SessionTTL is the lifetime of issued access tokens.
	SessionTTL time.Duration
	// DenyAuthorReads makes QueryLatestPostByUser fail with a permission denial.
	DenyAuthorReads bool
	Sessions        *gateway.SessionStore
	Now             func() time.Time
}

// Gateway serves the gateway contract from a gorm database.
type Gateway struct {
	db        *gorm.DB
	opts      Options
	listeners gateway.Listeners

	mu      sync.Mutex
	session *models.Session
	loaded  bool
}

var _ gateway.Gateway = (*Gateway)(nil)

// New returns a gateway over db. The tables must already exist; see Migrate.
func New(db *gorm.DB, opts Options) (*Gateway, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("local gateway: JWT secret is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gateway{db: db, opts: opts}, nil
}

func (g *Gateway) now() time.Time {
	return g.opts.Now().UTC()
}

func rlsViolation(table string) *gateway.Error {
	return &gateway.Error{
		Code:    gateway.PermissionDeniedCode,
		Message: fmt.Sprintf("new row violates row-level security policy for table %q", table),
	}
}

func permissionDenied(table string) *gateway.Error {
	return &gateway.Error{
		Code:    gateway.PermissionDeniedCode,
		Message: "permission denied for table " + table,
	}
}

// mapError converts driver failures to gateway errors, keeping Postgres SQLSTATE codes.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &gateway.Error{
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Details: pgErr.Detail,
			Hint:    pgErr.Hint,
		}
	}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return &gateway.Error{Message: err.Error()}
}

// currentUser returns the signed-in user's id, or "" when there is no valid session.
func (g *Gateway) currentUser(ctx context.Context) string {
	session, err := g.GetSession(ctx)
	if err != nil || session == nil {
		return ""
	}
	return session.UserID
}

func (g *Gateway) QueryPosts(ctx context.Context, q gateway.PostQuery) ([]models.Confession, error) {
	visibility := q.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	var records []confessionRecord
	err := g.db.WithContext(ctx).
		Where("visibility = ?", string(visibility)).
		Order("created_at desc").
		Order("id desc").
		Offset(q.Range.Offset).
		Limit(q.Range.Limit).
		Find(&records).Error
	if err != nil {
		return nil, mapError(err)
	}

	counts, err := g.replyCounts(ctx, lo.Map(records, func(r confessionRecord, _ int) string { return r.ID }))
	if err != nil {
		return nil, err
	}

	return lo.Map(records, func(r confessionRecord, _ int) models.Confession {
		out := r.model()
		n := counts[r.ID]
		out.ReplyCount = &n
		return out
	}), nil
}

func (g *Gateway) replyCounts(ctx context.Context, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		ConfessionID string
		N            int
	}
	err := g.db.WithContext(ctx).
		Model(&replyRecord{}).
		Select("confession_id, COUNT(*) AS n").
		Where("confession_id IN ?", ids).
		Group("confession_id").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(err)
	}
	for _, row := range rows {
		counts[row.ConfessionID] = row.N
	}
	return counts, nil
}

func (g *Gateway) CountPosts(ctx context.Context, visibility models.Visibility) (int, error) {
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	var n int64
	err := g.db.WithContext(ctx).
		Model(&confessionRecord{}).
		Where("visibility = ?", string(visibility)).
		Count(&n).Error
	if err != nil {
		return 0, mapError(err)
	}
	return int(n), nil
}

func (g *Gateway) InsertPost(ctx context.Context, post models.NewConfession) (*models.Confession, error) {
	userID := g.currentUser(ctx)
	if userID == "" || userID != post.UserID {
		return nil, rlsViolation("confessions")
	}

	now := g.now()
	if g.opts.Cooldown > 0 {
		var recent int64
		err := g.db.WithContext(ctx).
			Model(&confessionRecord{}).
			Where("user_id = ? AND created_at > ?", userID, now.Add(-g.opts.Cooldown)).
			Count(&recent).Error
		if err != nil {
			return nil, mapError(err)
		}
		if recent > 0 {
			return nil, rlsViolation("confessions")
		}
	}

	visibility := post.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	record := confessionRecord{
		ID:         uuid.NewString(),
		Content:    post.Content,
		Name:       post.Name,
		Visibility: string(visibility),
		UserID:     userID,
		CreatedAt:  now,
	}
	if err := g.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, mapError(err)
	}

	out := record.model()
	return &out, nil
}

func (g *Gateway) DeletePost(ctx context.Context, id string) error {
	userID := g.currentUser(ctx)

	// Rows owned by someone else are invisible to the delete, as with row level security.
	// The confession and its replies go together or not at all.
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&confessionRecord{})
		if res.Error != nil {
			return mapError(res.Error)
		}
		if res.RowsAffected == 0 {
			return &gateway.Error{Code: "PGRST116", Message: "Confession not found or not owned by this session."}
		}
		if err := tx.Where("confession_id = ?", id).Delete(&replyRecord{}).Error; err != nil {
			return mapError(err)
		}
		return nil
	})
}

func (g *Gateway) QueryLatestPostByUser(ctx context.Context, userID string) (*models.Confession, error) {
	if g.opts.DenyAuthorReads {
		return nil, permissionDenied("confessions")
	}

	var records []confessionRecord
	err := g.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, mapError(err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	out := records[0].model()
	return &out, nil
}

func (g *Gateway) QueryRepliesByPost(ctx context.Context, postID string, r gateway.Range, order gateway.Order) ([]models.Reply, error) {
	if postID == "" {
		return nil, errors.New("Confession id missing.")
	}
	dir := "desc"
	if order == gateway.OrderAsc {
		dir = "asc"
	}

	var records []replyRecord
	err := g.db.WithContext(ctx).
		Where("confession_id = ?", postID).
		Order("created_at " + dir).
		Order("id " + dir).
		Offset(r.Offset).
		Limit(r.Limit).
		Find(&records).Error
	if err != nil {
		return nil, mapError(err)
	}
	return lo.Map(records, func(r replyRecord, _ int) models.Reply { return r.model() }), nil
}

func (g *Gateway) InsertReply(ctx context.Context, reply models.NewReply) (*models.Reply, error) {
	if strings.TrimSpace(reply.ConfessionID) == "" {
		return nil, errors.New("Confession id missing.")
	}
	userID := g.currentUser(ctx)
	if userID == "" || userID != reply.UserID {
		return nil, rlsViolation("confession_replies")
	}

	var parents int64
	err := g.db.WithContext(ctx).
		Model(&confessionRecord{}).
		Where("id = ?", reply.ConfessionID).
		Count(&parents).Error
	if err != nil {
		return nil, mapError(err)
	}
	if parents == 0 {
		return nil, &gateway.Error{
			Code:    "23503",
			Message: `insert or update on table "confession_replies" violates foreign key constraint "confession_replies_confession_id_fkey"`,
		}
	}

	record := replyRecord{
		ID:           uuid.NewString(),
		ConfessionID: reply.ConfessionID,
		Content:      reply.Content,
		Name:         reply.Name,
		UserID:       userID,
		CreatedAt:    g.now(),
	}
	if err := g.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, mapError(err)
	}
	out := record.model()
	return &out, nil
}
