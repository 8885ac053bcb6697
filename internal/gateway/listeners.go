package gateway

import (
	"slices"
	"sync"

	"github.com/Rylogix/VentBoard/internal/models"

	"github.com/samber/lo"
)

// SessionEvent names a session change.
type SessionEvent string

const (
	EventSignedIn       SessionEvent = "SIGNED_IN"
	EventTokenRefreshed SessionEvent = "TOKEN_REFRESHED"
	EventSignedOut      SessionEvent = "SIGNED_OUT"
)

// SessionListener is notified of session changes. session is nil on sign-out.
type SessionListener func(event SessionEvent, session *models.Session)

// Subscription detaches a listener.
type Subscription struct {
	once   sync.Once
	detach func()
}

// Unsubscribe detaches the listener. Later calls do nothing.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
	})
}

// Listeners fans session changes out to registered listeners. The zero value is ready
// to use.
type Listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]SessionListener
}

// Add registers fn.
func (l *Listeners) Add(fn SessionListener) *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]SessionListener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	return &Subscription{detach: func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}}
}

// Emit calls every listener in registration order.
func (l *Listeners) Emit(event SessionEvent, session *models.Session) {
	l.mu.Lock()
	ids := lo.Keys(l.fns)
	slices.Sort(ids)
	fns := lo.Map(ids, func(id int, _ int) SessionListener { return l.fns[id] })
	l.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}

// Len returns the number of registered listeners.
func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}
