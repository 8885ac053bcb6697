package actions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Rylogix/VentBoard/internal/cache"
	"github.com/Rylogix/VentBoard/internal/cooldown"
	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/state"
	"github.com/Rylogix/VentBoard/internal/store"
	"github.com/Rylogix/VentBoard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	gw        *testutil.GatewayStub
	st        *store.Store[state.State]
	cooldowns *cooldown.Cache
	c         *Coordinator
	now       time.Time
}

func newFixture(t *testing.T, gw *testutil.GatewayStub, opts ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		gw:        gw,
		st:        store.New(state.Initial(4)),
		cooldowns: cooldown.NewCache(cache.NewMemoryKV(), nil),
		now:       t0,
	}
	o := Options{
		PageSize:     4,
		ReplyOrder:   gateway.OrderDesc,
		Capabilities: gateway.FullCapabilities,
		Cooldowns:    f.cooldowns,
		Now:          func() time.Time { return f.now },
	}
	for _, fn := range opts {
		fn(&o)
	}
	f.c = New(f.st, gw, o)
	return f
}

// signIn publishes userID as ready and makes the gateway report the same session.
func (f *fixture) signIn(userID string) {
	if f.gw.GetSessionFn == nil {
		f.gw.GetSessionFn = testutil.StaticSession(userID)
	}
	f.st.Patch(func(s *state.State) {
		s.UserID = userID
		s.IsAuthReady = true
		s.AuthLoading = false
	})
}

func confession(id string, createdAt time.Time) models.Confession {
	return models.Confession{ID: id, Content: "confession " + id, CreatedAt: createdAt, Visibility: models.VisibilityPublic}
}

func confessions(prefix string, n int) []models.Confession {
	out := make([]models.Confession, n)
	for i := range out {
		out[i] = confession(fmt.Sprintf("%s-%d", prefix, i), t0.Add(-time.Duration(i)*time.Minute))
	}
	return out
}

func ids(rows []models.Confession) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestNew_PublishesConfigError(t *testing.T) {
	f := newFixture(t, &testutil.GatewayStub{}, func(o *Options) { o.ConfigError = "Missing config." })
	assert.Equal(t, "Missing config.", f.st.GetState().ConfigError)
}

func TestNew_Defaults(t *testing.T) {
	c := New(store.New(state.Initial(0)), &testutil.GatewayStub{}, Options{})
	assert.Equal(t, DefaultPageSize, c.PageSize())
	assert.Equal(t, gateway.OrderDesc, c.opts.ReplyOrder)
	assert.NotNil(t, c.Store())
}

func TestConfigErrorDisablesEveryAction(t *testing.T) {
	gw := &testutil.GatewayStub{}
	f := newFixture(t, gw, func(o *Options) { o.ConfigError = "Missing config." })
	f.signIn("user-1")
	ctx := context.Background()

	checks := map[string]error{
		"LoadInitial": f.c.LoadInitial(ctx),
		"LoadMore":    f.c.LoadMore(ctx),
		"Total":       f.c.RefreshTotal(ctx),
		"Undo":        f.c.UndoLastSubmission(ctx),
		"LoadReplies": f.c.LoadReplies(ctx, "p1", true),
	}
	_, checks["Submit"] = f.c.Submit(ctx, SubmitInput{Content: "hello there", Mode: models.ModeAnonymous})
	_, checks["SubmitReply"] = f.c.SubmitReply(ctx, ReplyInput{PostID: "p1", Content: "hi"})

	for name, err := range checks {
		require.Error(t, err, name)
		assert.True(t, models.HasCode(err, models.CodeConfiguration), name)
	}
	assert.Equal(t, "Missing config.", f.st.GetState().SubmitError)
	assert.Equal(t, 0, gw.Calls("QueryPosts"))
	assert.Equal(t, 0, gw.Calls("InsertPost"))
	assert.Equal(t, 0, gw.Calls("QueryRepliesByPost"))

	f.c.HydrateCooldown(ctx, "user-1")
	assert.Equal(t, 0, gw.Calls("QueryLatestPostByUser"))
}

func TestTxn_BeginRejectedLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t, &testutil.GatewayStub{})
	notified := 0
	unsubscribe := f.st.Subscribe(func(state.State) { notified++ })
	defer unsubscribe()

	_, ok := f.c.begin(func(state.State) bool { return false }, func(s *state.State) { s.Loading = true })
	assert.False(t, ok)
	assert.False(t, f.st.GetState().Loading)
	assert.Equal(t, 1, notified)

	tx, ok := f.c.begin(nil, func(s *state.State) { s.Loading = true })
	require.True(t, ok)
	assert.True(t, f.st.GetState().Loading)
	tx.rollback(func(s *state.State) { s.Loading = false; s.Error = "failed" })
	assert.Equal(t, "failed", f.st.GetState().Error)
}
