// Package state defines the application snapshot held in the store.
package state

import (
	"time"

	"github.com/Rylogix/VentBoard/internal/models"
)

// Page is a pagination cursor. HasMore turns false when a fetch returns fewer rows
// than Limit.
type Page struct {
	Offset  int
	Limit   int
	HasMore bool
}

// ReplyThread is the per-confession reply state, created lazily on first interaction.
type ReplyThread struct {
	Items          []models.Reply
	Loading        bool
	LoadingMore    bool
	Error          string
	IsOpen         bool
	HasLoaded      bool
	Submitting     bool
	IsComposerOpen bool
	Page           Page
}

// Busy reports whether a load is in flight for the thread.
func (t ReplyThread) Busy() bool {
	return t.Loading || t.LoadingMore
}

// State is the full application snapshot.
type State struct {
	Confessions []models.Confession
	Total       *int
	Loading     bool
	LoadingMore bool
	Error       string

	Submitting  bool
	SubmitError string
	ConfigError string

	UserID      string
	AuthLoading bool
	AuthError   string
	IsAuthReady bool

	LastSubmitted *models.SubmissionRef
	CooldownEnd   *time.Time

	Page    Page
	Replies map[string]ReplyThread
}

// Initial returns the empty snapshot for a feed paginated by pageSize.
func Initial(pageSize int) State {
	return State{
		Confessions: []models.Confession{},
		AuthLoading: true,
		Page:        Page{Offset: 0, Limit: pageSize, HasMore: true},
		Replies:     map[string]ReplyThread{},
	}
}

// Thread returns the thread for confessionID, or the zero thread when none exists yet.
func (s State) Thread(confessionID string) ReplyThread {
	return s.Replies[confessionID]
}

// WithThread returns a copy of the replies map with confessionID replaced by thread.
// The receiver's map is never written.
func (s State) WithThread(confessionID string, thread ReplyThread) map[string]ReplyThread {
	next := make(map[string]ReplyThread, len(s.Replies)+1)
	for id, t := range s.Replies {
		next[id] = t
	}
	next[confessionID] = thread
	return next
}

// CooldownActive reports whether the tracked cooldown ends after now.
func (s State) CooldownActive(now time.Time) bool {
	return s.CooldownEnd != nil && now.Before(*s.CooldownEnd)
}
