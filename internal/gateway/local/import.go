package local

import (
	"context"

	"github.com/Rylogix/VentBoard/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ImportedPost is a confession written directly to the database together with its
// author and replies, bypassing the session and cooldown checks.
type ImportedPost struct {
	Confession models.Confession
	UserID     string
	Replies    []models.Reply
}

// Import writes posts and their replies in one transaction.
func Import(ctx context.Context, db *gorm.DB, posts []ImportedPost) error {
	if len(posts) == 0 {
		return nil
	}
	confessions := lo.Map(posts, func(p ImportedPost, _ int) confessionRecord {
		c := p.Confession
		visibility := c.Visibility
		if visibility == "" {
			visibility = models.VisibilityPublic
		}
		return confessionRecord{
			ID:         c.ID,
			Content:    c.Content,
			Name:       c.Name,
			Visibility: string(visibility),
			UserID:     p.UserID,
			CreatedAt:  c.CreatedAt.UTC(),
		}
	})
	replies := lo.FlatMap(posts, func(p ImportedPost, _ int) []replyRecord {
		return lo.Map(p.Replies, func(r models.Reply, _ int) replyRecord {
			return replyRecord{
				ID:           r.ID,
				ConfessionID: p.Confession.ID,
				Content:      r.Content,
				Name:         r.Name,
				UserID:       r.UserID,
				CreatedAt:    r.CreatedAt.UTC(),
			}
		})
	})

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&confessions, 100).Error; err != nil {
			return mapError(err)
		}
		if len(replies) > 0 {
			if err := tx.CreateInBatches(&replies, 100).Error; err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// Clear deletes every confession and reply.
func Clear(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&replyRecord{}).Error; err != nil {
			return mapError(err)
		}
		return mapError(tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&confessionRecord{}).Error)
	})
}
