package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { _ = SetLevel("info") })

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, slog.LevelDebug, level.Level())

	require.NoError(t, SetLevel(""))
	assert.Equal(t, slog.LevelInfo, level.Level())

	err := SetLevel("loud")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLogLevel))
}

func TestCtxHandlerAddsUserID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewTextHandler(&buf, nil)})

	ctx := WithUserID(context.Background(), "user-1")
	logger.InfoContext(ctx, "hello")

	assert.Contains(t, buf.String(), "user_id=user-1")
}

func TestTrackGateway(t *testing.T) {
	assert.NotPanics(t, func() {
		TrackGateway("test.op")(nil)
		TrackGateway("test.op")(errors.New("boom"))
	})
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "ventboard-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "noop")
	EndSpan(span, errors.New("ignored"))
	assert.Equal(t, "", TraceID(ctx))
}
