// Package cooldown tracks the per-user posting cooldown and caches the last submission
// in a key-value store.
package cooldown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Rylogix/VentBoard/internal/cache"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/observability"
)

// Window is the minimum interval between two confessions by the same user.
const Window = time.Hour

// Key returns the cache key for userID.
func Key(userID string) string {
	return "confessionCooldown:" + userID
}

// EndFor returns when the cooldown started by a confession created at createdAt ends.
func EndFor(createdAt time.Time) time.Time {
	return createdAt.Add(Window)
}

// RemainingMessage formats the wait before the next post, rounding up to whole minutes
// with a minimum of one.
func RemainingMessage(remaining time.Duration) string {
	minutes := int(math.Ceil(float64(remaining) / float64(time.Minute)))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("You can post again in %d %s.", minutes, unit)
}

// Record is the cached cooldown state. CooldownEnd is epoch milliseconds.
type Record struct {
	LastSubmitted *models.SubmissionRef `json:"lastSubmitted"`
	CooldownEnd   *int64                `json:"cooldownEnd"`
}

// NewRecord derives the record for a confession with the given id and creation time.
func NewRecord(id string, createdAt time.Time) Record {
	end := EndFor(createdAt).UnixMilli()
	return Record{
		LastSubmitted: &models.SubmissionRef{ID: id, CreatedAt: createdAt},
		CooldownEnd:   &end,
	}
}

// End returns the cooldown end as a time, or nil when the record has none.
func (r Record) End() *time.Time {
	if r.CooldownEnd == nil {
		return nil
	}
	t := time.UnixMilli(*r.CooldownEnd).UTC()
	return &t
}

// Cache is a best-effort store for cooldown records. Every failure is logged and
// swallowed; a missing record never blocks a post.
type Cache struct {
	kv     cache.KV
	logger *slog.Logger
}

// NewCache wraps kv. A nil logger uses the global logger.
func NewCache(kv cache.KV, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = observability.Logger
	}
	return &Cache{kv: kv, logger: logger}
}

// Read returns the record cached for userID, or nil when it is absent, malformed or
// unreadable.
func (c *Cache) Read(ctx context.Context, userID string) *Record {
	if c == nil || userID == "" {
		return nil
	}
	raw, err := c.kv.Get(ctx, Key(userID))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.fail(ctx, "read", err)
		}
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var record *Record
	if err := json.Unmarshal(raw, &record); err != nil {
		c.fail(ctx, "decode", err)
		return nil
	}
	return record
}

// Write persists record for userID.
func (c *Cache) Write(ctx context.Context, userID string, record Record) {
	if c == nil || userID == "" {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		c.fail(ctx, "encode", err)
		return
	}
	if err := c.kv.Set(ctx, Key(userID), raw, 0); err != nil {
		c.fail(ctx, "write", err)
	}
}

// Clear removes the record for userID.
func (c *Cache) Clear(ctx context.Context, userID string) {
	if c == nil || userID == "" {
		return
	}
	if err := c.kv.Delete(ctx, Key(userID)); err != nil {
		c.fail(ctx, "clear", err)
	}
}

func (c *Cache) fail(ctx context.Context, op string, err error) {
	observability.CacheErrors.WithLabelValues("cooldown_" + op).Inc()
	c.logger.DebugContext(ctx, "cooldown cache failure", "op", op, "error", err)
}
