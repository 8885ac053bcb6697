package actions

import "github.com/Rylogix/VentBoard/internal/state"

// A write to the gateway runs in two phases against the store: begin applies a
// speculative patch (in-flight flags) if guard accepts the current snapshot, and the
// gateway's answer is then either committed or rolled back. At most one write per
// guarded resource can be between begin and its resolution.
type txn struct {
	c *Coordinator
}

// begin reports false, leaving the store untouched, when guard rejects the snapshot.
func (c *Coordinator) begin(guard func(state.State) bool, speculative func(*state.State)) (txn, bool) {
	ok := c.store.UpdateIf(func(prev state.State) (state.State, bool) {
		if guard != nil && !guard(prev) {
			return prev, false
		}
		next := prev
		speculative(&next)
		return next, true
	})
	return txn{c: c}, ok
}

func (t txn) commit(confirmed func(*state.State)) {
	t.c.store.Patch(confirmed)
}

func (t txn) rollback(failed func(*state.State)) {
	t.c.store.Patch(failed)
}
