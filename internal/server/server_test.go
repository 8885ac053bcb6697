package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rylogix/VentBoard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>board</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	return &config.Config{
		Port:            "0",
		StaticDir:       dir,
		AllowedOrigins:  "http://localhost:5173",
		Gateway:         config.GatewayPostgrest,
		SupabaseURL:     "https://example.supabase.co",
		SupabaseAnonKey: "anon-key",
	}
}

func do(t *testing.T, s *Server, method, target string) (*http.Response, string) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, target, nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestConfigScript(t *testing.T) {
	s := NewServer(testConfig(t), nil)

	resp, body := do(t, s, http.MethodGet, "/config.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/javascript")

	require.True(t, strings.HasPrefix(body, "window.__ENV__ = "))
	require.True(t, strings.HasSuffix(body, ";"))

	var env map[string]string
	raw := strings.TrimSuffix(strings.TrimPrefix(body, "window.__ENV__ = "), ";")
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "https://example.supabase.co", env["VITE_SUPABASE_URL"])
	assert.Equal(t, "anon-key", env["VITE_SUPABASE_ANON_KEY"])
}

func TestConfigScript_EmptyWhenUnset(t *testing.T) {
	cfg := testConfig(t)
	cfg.SupabaseURL = ""
	cfg.SupabaseAnonKey = ""
	s := NewServer(cfg, nil)

	_, body := do(t, s, http.MethodGet, "/config.js")
	assert.Contains(t, body, `"VITE_SUPABASE_URL":""`)
	assert.Contains(t, body, `"VITE_SUPABASE_ANON_KEY":""`)
}

func TestStaticFiles(t *testing.T) {
	s := NewServer(testConfig(t), nil)

	resp, body := do(t, s, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<h1>board</h1>", body)

	resp, body = do(t, s, http.MethodGet, "/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "console.log(1)", body)

	resp, body = do(t, s, http.MethodGet, "/missing.css")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not found", body)
}

func TestHealthCheck(t *testing.T) {
	t.Run("without database", func(t *testing.T) {
		s := NewServer(testConfig(t), nil)
		resp, body := do(t, s, http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Equal(t, "healthy", out["status"])
		assert.Equal(t, true, out["configured"])
		assert.Equal(t, "unused", out["checks"].(map[string]any)["database"])
	})

	t.Run("with database", func(t *testing.T) {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		require.NoError(t, err)
		s := NewServer(testConfig(t), db)

		resp, body := do(t, s, http.MethodGet, "/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"database":"healthy"`)
	})

	t.Run("closed database", func(t *testing.T) {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
		s := NewServer(testConfig(t), db)

		resp, body := do(t, s, http.MethodGet, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, body, `"status":"unhealthy"`)
	})

	t.Run("missing gateway config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.SupabaseAnonKey = ""
		s := NewServer(cfg, nil)

		_, body := do(t, s, http.MethodGet, "/health")
		assert.Contains(t, body, `"configured":false`)
	})
}

func TestMiddleware(t *testing.T) {
	s := NewServer(testConfig(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/config.js", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer(testConfig(t), nil)
	do(t, s, http.MethodGet, "/config.js")

	resp, body := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "ventboard_http_requests_total")
}

func TestRateLimitKeepsCORSHeaders(t *testing.T) {
	s := NewServer(testConfig(t), nil)
	app := s.App()

	var last *http.Response
	for i := 0; i < 301; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		last = resp
	}

	assert.Equal(t, http.StatusTooManyRequests, last.StatusCode)
	assert.Equal(t, "http://localhost:5173", last.Header.Get("Access-Control-Allow-Origin"))
}
