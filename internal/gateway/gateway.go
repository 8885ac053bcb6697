// Package gateway defines the contract of the remote data and auth service the board
// runs against, plus the pieces shared by its implementations.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rylogix/VentBoard/internal/models"
)

// Range selects Limit rows starting at Offset.
type Range struct {
	Offset int
	Limit  int
}

// To returns the inclusive index of the last row in the range.
func (r Range) To() int {
	return r.Offset + r.Limit - 1
}

// Order is the creation-time sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder maps "asc"/"desc" (any case) to an Order, defaulting to descending.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(OrderAsc)) {
		return OrderAsc
	}
	return OrderDesc
}

// PostQuery selects a page of confessions, newest first.
type PostQuery struct {
	Visibility models.Visibility
	Range      Range
}

// Posts is the confession table.
type Posts interface {
	QueryPosts(ctx context.Context, q PostQuery) ([]models.Confession, error)
	CountPosts(ctx context.Context, visibility models.Visibility) (int, error)
	InsertPost(ctx context.Context, post models.NewConfession) (*models.Confession, error)
	DeletePost(ctx context.Context, id string) error
	// QueryLatestPostByUser returns nil without error when the user has never posted.
	QueryLatestPostByUser(ctx context.Context, userID string) (*models.Confession, error)
}

// Replies is the reply table.
type Replies interface {
	QueryRepliesByPost(ctx context.Context, postID string, r Range, order Order) ([]models.Reply, error)
	InsertReply(ctx context.Context, reply models.NewReply) (*models.Reply, error)
}

// Auth issues and reports anonymous sessions.
type Auth interface {
	// GetSession returns nil without error when no session exists.
	GetSession(ctx context.Context) (*models.Session, error)
	SignInAnonymously(ctx context.Context) (*models.Session, error)
	OnSessionChange(fn SessionListener) *Subscription
}

// Gateway is the full remote service.
type Gateway interface {
	Posts
	Replies
	Auth
}

// PermissionDeniedCode is the Postgres SQLSTATE for insufficient privilege, which row
// level security policies report.
const PermissionDeniedCode = "42501"

// Error is a failure reported by the gateway.
type Error struct {
	Code    string
	Message string
	Details string
	Hint    string
	Status  int
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// IsPermissionDenied reports whether err is a permission or row level security denial.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	var gwErr *Error
	msg := err.Error()
	if errors.As(err, &gwErr) {
		if gwErr.Code == PermissionDeniedCode {
			return true
		}
		msg = gwErr.Message
	}
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "row level security") || strings.Contains(msg, "permission")
}

// Message returns the text to show for a gateway failure: the gateway's own message
// with its code appended, or fallback when there is none.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		if gwErr.Message == "" {
			return fallback
		}
		return gwErr.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// Capabilities records which optional columns the backing schema has. They are
// negotiated once at startup and passed to whoever needs them.
type Capabilities struct {
	PostNames   bool
	ReplyNames  bool
	ReplyCounts bool
}

// FullCapabilities is the schema the local gateway creates.
var FullCapabilities = Capabilities{PostNames: true, ReplyNames: true, ReplyCounts: true}
