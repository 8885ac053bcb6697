package models

import "time"

// Reply is a response to a confession.
type Reply struct {
	ID           string    `json:"id"`
	ConfessionID string    `json:"confession_id"`
	Content      string    `json:"content"`
	Name         *string   `json:"name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UserID       string    `json:"user_id"`
}

// DisplayName returns the reply-scoped name or "Anonymous".
func (r Reply) DisplayName() string {
	if r.Name != nil && *r.Name != "" {
		return *r.Name
	}
	return "Anonymous"
}

// NewReply is the insert payload for a reply.
type NewReply struct {
	ConfessionID string  `json:"confession_id"`
	Content      string  `json:"content"`
	Name         *string `json:"name,omitempty"`
	UserID       string  `json:"user_id"`
}
