// Package store provides an observable state container.
package store

import "sync"

// Listener receives every new snapshot.
type Listener[S any] func(S)

// Store holds an immutable snapshot of type S and notifies subscribers after each change.
//
// Snapshots are values; callers must treat slices and maps inside them as read-only and
// copy before changing them in an updater. Listeners run synchronously on the goroutine
// that changed the state, in subscription order, outside the internal lock, so a listener
// may call back into the store.
type Store[S any] struct {
	mu        sync.Mutex
	state     S
	listeners []*subscription[S]
}

type subscription[S any] struct {
	fn Listener[S]
}

// New returns a store seeded with initial.
func New[S any](initial S) *Store[S] {
	return &Store[S]{state: initial}
}

// GetState returns the current snapshot.
func (s *Store[S]) GetState() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState replaces the snapshot.
func (s *Store[S]) SetState(next S) {
	s.Update(func(S) S { return next })
}

// Update replaces the snapshot with fn applied to the previous one. fn runs under the
// store lock and must not call the store.
func (s *Store[S]) Update(fn func(prev S) S) {
	s.UpdateIf(func(prev S) (S, bool) { return fn(prev), true })
}

// UpdateIf is the check-and-set form of Update: fn reports whether it produced a new
// snapshot, and listeners are only notified when it did. The check and the write happen
// under one lock acquisition.
func (s *Store[S]) UpdateIf(fn func(prev S) (S, bool)) bool {
	s.mu.Lock()
	next, ok := fn(s.state)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.state = next
	listeners := make([]*subscription[S], len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(next)
	}
	return true
}

// Patch applies fn to a shallow copy of the snapshot. It is the partial-merge form of Update.
func (s *Store[S]) Patch(fn func(next *S)) {
	s.Update(func(prev S) S {
		next := prev
		fn(&next)
		return next
	})
}

// Subscribe registers fn, calls it once with the current snapshot and returns an
// unsubscribe handle. Calling the handle more than once is a no-op.
func (s *Store[S]) Subscribe(fn Listener[S]) (unsubscribe func()) {
	sub := &subscription[S]{fn: fn}

	s.mu.Lock()
	s.listeners = append(s.listeners, sub)
	current := s.state
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l == sub {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}
