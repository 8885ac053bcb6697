// Package models contains data structures for the application's domain models.
package models

import "time"

// Visibility tags who can list a confession.
type Visibility string

const (
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate exists in older schemas; confessions are never written with it.
	VisibilityPrivate Visibility = "private"
)

// PostMode selects whether a confession carries the author's display name.
type PostMode string

const (
	ModeAnonymous PostMode = "anonymous"
	ModePublic    PostMode = "public"
)

// Confession is a post on the board.
type Confession struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Name       *string    `json:"name,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Visibility Visibility `json:"visibility"`
	// ReplyCount is a denormalized seed attached at fetch time when the gateway supports it.
	ReplyCount *int `json:"reply_count,omitempty"`
}

// DisplayName returns the attributed name or "Anonymous".
func (c Confession) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return "Anonymous"
}

// NewConfession is the insert payload for a confession.
type NewConfession struct {
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility"`
	Name       *string    `json:"name"`
	UserID     string     `json:"user_id"`
}

// SubmissionRef identifies the caller's most recent confession.
type SubmissionRef struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
