// Package local implements the gateway on a SQL database through gorm, enforcing the
// access policy a hosted deployment enforces with row level security.
package local

import (
	"time"

	"github.com/Rylogix/VentBoard/internal/models"

	"gorm.io/gorm"
)

type confessionRecord struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	Content    string    `gorm:"type:text;not null"`
	Name       *string   `gorm:"type:varchar(64)"`
	Visibility string    `gorm:"type:varchar(16);not null;index"`
	UserID     string    `gorm:"type:varchar(36);not null;index"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (confessionRecord) TableName() string { return "confessions" }

func (r confessionRecord) model() models.Confession {
	return models.Confession{
		ID:         r.ID,
		Content:    r.Content,
		Name:       r.Name,
		CreatedAt:  r.CreatedAt,
		Visibility: models.Visibility(r.Visibility),
	}
}

type replyRecord struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	ConfessionID string    `gorm:"type:varchar(36);not null;index"`
	Content      string    `gorm:"type:text;not null"`
	Name         *string   `gorm:"type:varchar(64)"`
	UserID       string    `gorm:"type:varchar(36);not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

func (replyRecord) TableName() string { return "confession_replies" }

func (r replyRecord) model() models.Reply {
	return models.Reply{
		ID:           r.ID,
		ConfessionID: r.ConfessionID,
		Content:      r.Content,
		Name:         r.Name,
		CreatedAt:    r.CreatedAt,
		UserID:       r.UserID,
	}
}

// Migrate creates or updates the confession and reply tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&confessionRecord{}, &replyRecord{})
}
