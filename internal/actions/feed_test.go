package actions

import (
	"context"
	"sync"
	"testing"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/state"
	"github.com/Rylogix/VentBoard/internal/testutil"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadInitial_EmptyFeed(t *testing.T) {
	gw := &testutil.GatewayStub{}
	f := newFixture(t, gw)

	require.NoError(t, f.c.LoadInitial(context.Background()))

	s := f.st.GetState()
	assert.Empty(t, s.Confessions)
	assert.NotNil(t, s.Confessions)
	assert.False(t, s.Page.HasMore)
	assert.False(t, s.Loading)
	assert.Equal(t, 0, s.Page.Offset)
}

func TestLoadInitial_FullPage(t *testing.T) {
	var got gateway.PostQuery
	gw := &testutil.GatewayStub{
		QueryPostsFn: func(_ context.Context, q gateway.PostQuery) ([]models.Confession, error) {
			got = q
			return confessions("a", 4), nil
		},
	}
	f := newFixture(t, gw)

	require.NoError(t, f.c.LoadInitial(context.Background()))

	assert.Equal(t, models.VisibilityPublic, got.Visibility)
	assert.Equal(t, gateway.Range{Offset: 0, Limit: 4}, got.Range)

	s := f.st.GetState()
	assert.Len(t, s.Confessions, 4)
	assert.Equal(t, state.Page{Offset: 4, Limit: 4, HasMore: true}, s.Page)
}

func TestLoadInitial_ResetsPreviousFeed(t *testing.T) {
	gw := &testutil.GatewayStub{
		QueryPostsFn: func(context.Context, gateway.PostQuery) ([]models.Confession, error) {
			return confessions("b", 2), nil
		},
	}
	f := newFixture(t, gw)
	f.st.Patch(func(s *state.State) {
		s.Confessions = confessions("old", 3)
		s.Page = state.Page{Offset: 9, Limit: 4, HasMore: false}
		s.Error = "stale"
	})

	require.NoError(t, f.c.LoadInitial(context.Background()))

	s := f.st.GetState()
	assert.Equal(t, []string{"b-0", "b-1"}, ids(s.Confessions))
	assert.Equal(t, state.Page{Offset: 2, Limit: 4, HasMore: false}, s.Page)
	assert.Empty(t, s.Error)
}

func TestLoadInitial_Error(t *testing.T) {
	gw := &testutil.GatewayStub{
		QueryPostsFn: func(context.Context, gateway.PostQuery) ([]models.Confession, error) {
			return nil, &gateway.Error{Code: "57014", Message: "canceling statement due to statement timeout"}
		},
	}
	f := newFixture(t, gw)

	err := f.c.LoadInitial(context.Background())
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeTransport))

	s := f.st.GetState()
	assert.False(t, s.Loading)
	assert.Equal(t, "canceling statement due to statement timeout (57014)", s.Error)
}

func TestLoadInitial_SkipsNonPublicRows(t *testing.T) {
	rows := confessions("c", 4)
	rows[1].Visibility = models.VisibilityPrivate
	gw := &testutil.GatewayStub{
		QueryPostsFn: func(context.Context, gateway.PostQuery) ([]models.Confession, error) { return rows, nil },
	}
	f := newFixture(t, gw)

	require.NoError(t, f.c.LoadInitial(context.Background()))

	s := f.st.GetState()
	assert.Equal(t, []string{"c-0", "c-2", "c-3"}, ids(s.Confessions))
	assert.Equal(t, 4, s.Page.Offset)
	assert.True(t, s.Page.HasMore)
}

func TestLoadMore_AppendsAndAdvances(t *testing.T) {
	var ranges []gateway.Range
	gw := &testutil.GatewayStub{
		QueryPostsFn: func(_ context.Context, q gateway.PostQuery) ([]models.Confession, error) {
			ranges = append(ranges, q.Range)
			if q.Range.Offset == 0 {
				return confessions("p1", 4), nil
			}
			return confessions("p2", 1), nil
		},
	}
	f := newFixture(t, gw)
	ctx := context.Background()

	require.NoError(t, f.c.LoadInitial(ctx))
	require.NoError(t, f.c.LoadMore(ctx))

	s := f.st.GetState()
	assert.Len(t, s.Confessions, 5)
	assert.Equal(t, "p2-0", s.Confessions[4].ID)
	assert.Equal(t, state.Page{Offset: 5, Limit: 4, HasMore: false}, s.Page)
	assert.Equal(t, []gateway.Range{{Offset: 0, Limit: 4}, {Offset: 4, Limit: 4}}, ranges)

	require.NoError(t, f.c.LoadMore(ctx))
	assert.Equal(t, 2, gw.Calls("QueryPosts"))
}

func TestLoadMore_SkipsWhileLoading(t *testing.T) {
	gw := &testutil.GatewayStub{}
	f := newFixture(t, gw)

	f.st.Patch(func(s *state.State) { s.Loading = true })
	require.NoError(t, f.c.LoadMore(context.Background()))

	f.st.Patch(func(s *state.State) { s.Loading = false; s.LoadingMore = true })
	require.NoError(t, f.c.LoadMore(context.Background()))

	assert.Equal(t, 0, gw.Calls("QueryPosts"))
}

func TestLoadMore_OneRequestInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &testutil.GatewayStub{
		QueryPostsFn: func(context.Context, gateway.PostQuery) ([]models.Confession, error) {
			close(entered)
			<-release
			return confessions("x", 4), nil
		},
	}
	f := newFixture(t, gw)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, f.c.LoadMore(context.Background()))
	}()

	<-entered
	assert.True(t, f.st.GetState().LoadingMore)
	require.NoError(t, f.c.LoadMore(context.Background()))
	close(release)
	wg.Wait()

	assert.Equal(t, 1, gw.Calls("QueryPosts"))
	assert.False(t, f.st.GetState().LoadingMore)
	assert.Len(t, f.st.GetState().Confessions, 4)
}

func TestLoadMore_ErrorKeepsFeed(t *testing.T) {
	calls := 0
	gw := &testutil.GatewayStub{
		QueryPostsFn: func(context.Context, gateway.PostQuery) ([]models.Confession, error) {
			calls++
			if calls == 1 {
				return confessions("a", 4), nil
			}
			return nil, &gateway.Error{Message: ""}
		},
	}
	f := newFixture(t, gw)
	ctx := context.Background()

	require.NoError(t, f.c.LoadInitial(ctx))
	require.Error(t, f.c.LoadMore(ctx))

	s := f.st.GetState()
	assert.Len(t, s.Confessions, 4)
	assert.Equal(t, DefaultError, s.Error)
	assert.False(t, s.LoadingMore)
	assert.Equal(t, 4, s.Page.Offset)
	assert.True(t, s.Page.HasMore)
}

func TestRefreshTotal(t *testing.T) {
	gw := &testutil.GatewayStub{
		CountPostsFn: func(_ context.Context, v models.Visibility) (int, error) {
			assert.Equal(t, models.VisibilityPublic, v)
			return 42, nil
		},
	}
	f := newFixture(t, gw)

	require.NoError(t, f.c.RefreshTotal(context.Background()))
	require.NotNil(t, f.st.GetState().Total)
	assert.Equal(t, 42, *f.st.GetState().Total)
}

func TestPaginationTermination(t *testing.T) {
	const limit = 4

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("hasMore turns false at the first short page and stays false", prop.ForAll(
		func(sizes []int) bool {
			call := 0
			gw := &testutil.GatewayStub{
				QueryPostsFn: func(context.Context, gateway.PostQuery) ([]models.Confession, error) {
					n := sizes[call]
					call++
					return confessions("p", n), nil
				},
			}
			f := newFixture(t, gw)
			ctx := context.Background()

			firstShort := -1
			for i, n := range sizes {
				if n < limit {
					firstShort = i
					break
				}
			}

			if f.c.LoadInitial(ctx) != nil {
				return false
			}
			for i := 1; i < len(sizes); i++ {
				if f.c.LoadMore(ctx) != nil {
					return false
				}
				hasMore := f.st.GetState().Page.HasMore
				if firstShort >= 0 && firstShort < i && hasMore {
					return false
				}
			}

			s := f.st.GetState()
			if firstShort < 0 {
				return s.Page.HasMore && call == len(sizes)
			}
			return !s.Page.HasMore && call == firstShort+1
		},
		gen.SliceOfN(6, gen.IntRange(0, limit)),
	))

	properties.TestingRun(t)
}
