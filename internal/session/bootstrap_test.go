package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/state"
	"github.com/Rylogix/VentBoard/internal/store"
	"github.com/Rylogix/VentBoard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hydratorStub struct {
	mu    sync.Mutex
	users []string
}

func (h *hydratorStub) HydrateCooldown(_ context.Context, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users = append(h.users, userID)
}

func (h *hydratorStub) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.users...)
}

func newStore() *store.Store[state.State] {
	return store.New(state.Initial(12))
}

func TestStart_ExistingSession(t *testing.T) {
	gw := &testutil.GatewayStub{GetSessionFn: testutil.StaticSession("user-1")}
	st := newStore()
	h := &hydratorStub{}
	b := New(gw, st, h, nil)

	require.NoError(t, b.Start(context.Background()))
	b.Wait()

	s := st.GetState()
	assert.Equal(t, "user-1", s.UserID)
	assert.True(t, s.IsAuthReady)
	assert.False(t, s.AuthLoading)
	assert.Empty(t, s.AuthError)
	assert.Equal(t, Ready, b.Phase())
	assert.Equal(t, 0, gw.Calls("SignInAnonymously"))
	assert.Equal(t, []string{"user-1"}, h.calls())
}

func TestStart_SignsInWhenNoSession(t *testing.T) {
	gw := &testutil.GatewayStub{
		SignInAnonymouslyFn: func(context.Context) (*models.Session, error) {
			return &models.Session{UserID: "anon-7"}, nil
		},
	}
	st := newStore()
	b := New(gw, st, nil, nil)

	require.NoError(t, b.Start(context.Background()))

	assert.Equal(t, "anon-7", st.GetState().UserID)
	assert.Equal(t, 1, gw.Calls("GetSession"))
	assert.Equal(t, 1, gw.Calls("SignInAnonymously"))
}

func TestStart_RechecksSessionAfterEmptySignIn(t *testing.T) {
	checks := 0
	gw := &testutil.GatewayStub{
		GetSessionFn: func(context.Context) (*models.Session, error) {
			checks++
			if checks == 1 {
				return nil, nil
			}
			return &models.Session{UserID: "late"}, nil
		},
		SignInAnonymouslyFn: func(context.Context) (*models.Session, error) { return nil, nil },
	}
	st := newStore()
	b := New(gw, st, nil, nil)

	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, "late", st.GetState().UserID)
	assert.Equal(t, 2, gw.Calls("GetSession"))
}

func TestStart_Failures(t *testing.T) {
	boom := errors.New("network down")
	tests := []struct {
		name string
		gw   *testutil.GatewayStub
	}{
		{"session check fails", &testutil.GatewayStub{
			GetSessionFn: func(context.Context) (*models.Session, error) { return nil, boom },
		}},
		{"sign in fails", &testutil.GatewayStub{
			SignInAnonymouslyFn: func(context.Context) (*models.Session, error) { return nil, boom },
		}},
		{"session still missing", &testutil.GatewayStub{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStore()
			h := &hydratorStub{}
			b := New(tt.gw, st, h, nil)

			err := b.Start(context.Background())
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.CodeAuthNotReady))
			b.Wait()

			s := st.GetState()
			assert.Equal(t, FailedMessage, s.AuthError)
			assert.False(t, s.AuthLoading)
			assert.False(t, s.IsAuthReady)
			assert.Empty(t, s.UserID)
			assert.Equal(t, Failed, b.Phase())
			assert.Empty(t, h.calls())
		})
	}
}

func TestStart_WithoutGateway(t *testing.T) {
	st := newStore()
	b := New(nil, st, nil, nil)

	err := b.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, FailedMessage, st.GetState().AuthError)

	b.Listen()
	b.Close()
}

func TestStart_ClearsPreviousError(t *testing.T) {
	fail := true
	gw := &testutil.GatewayStub{
		GetSessionFn: func(context.Context) (*models.Session, error) {
			if fail {
				return nil, errors.New("offline")
			}
			return &models.Session{UserID: "u"}, nil
		},
	}
	st := newStore()
	b := New(gw, st, nil, nil)

	require.Error(t, b.Start(context.Background()))
	fail = false
	require.NoError(t, b.Start(context.Background()))

	assert.Empty(t, st.GetState().AuthError)
	assert.Equal(t, Ready, b.Phase())
}

func TestListen_RepublishesUserOnSessionChange(t *testing.T) {
	gw := &testutil.GatewayStub{}
	st := newStore()
	b := New(gw, st, nil, nil)

	b.Listen()
	b.Listen()
	assert.Equal(t, 1, gw.Listeners.Len())

	gw.Listeners.Emit(gateway.EventTokenRefreshed, &models.Session{UserID: "tab-2"})
	s := st.GetState()
	assert.Equal(t, "tab-2", s.UserID)
	assert.True(t, s.IsAuthReady)
	assert.False(t, s.AuthLoading)

	gw.Listeners.Emit(gateway.EventSignedOut, nil)
	assert.Equal(t, "tab-2", st.GetState().UserID)

	b.Close()
	assert.Equal(t, 0, gw.Listeners.Len())

	gw.Listeners.Emit(gateway.EventSignedIn, &models.Session{UserID: "ignored"})
	assert.Equal(t, "tab-2", st.GetState().UserID)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "signing_in", SigningIn.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
