// Package postgrest implements the gateway against a hosted Supabase project: PostgREST
// for the tables and GoTrue for anonymous sessions.
package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"

	"resty.dev/v3"
)

const (
	restPath = "/rest/v1"
	authPath = "/auth/v1"

	confessionsTable = "/confessions"
	repliesTable     = "/confession_replies"

	objectAccept = "application/vnd.pgrst.object+json"
)

// Config configures a Client.
type Config struct {
	URL          string
	AnonKey      string
	Capabilities gateway.Capabilities
	// Sessions persists the session between runs. Nil keeps it in memory only.
	Sessions *gateway.SessionStore
	Timeout  time.Duration
	Now      func() time.Time
}

// Client talks to Supabase over HTTP.
type Client struct {
	client    *resty.Client
	anonKey   string
	sessions  *gateway.SessionStore
	listeners gateway.Listeners
	now       func() time.Time

	mu      sync.Mutex
	caps    gateway.Capabilities
	session *models.Session
	loaded  bool
}

var _ gateway.Gateway = (*Client)(nil)

// New returns a client for the project at cfg.URL.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, errors.New("postgrest: url and anon key are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetHeader("apikey", cfg.AnonKey)

	return &Client{
		client:   client,
		anonKey:  cfg.AnonKey,
		sessions: cfg.Sessions,
		now:      now,
		caps:     cfg.Capabilities,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.client.Close()
}

// Capabilities returns the capabilities the client currently uses.
func (c *Client) Capabilities() gateway.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

// WithCapabilities replaces the negotiated capabilities.
func (c *Client) WithCapabilities(caps gateway.Capabilities) *Client {
	c.mu.Lock()
	c.caps = caps
	c.mu.Unlock()
	return c
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.anonKey
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetAuthToken(c.accessToken()).
		SetError(&apiError{})
}

// apiError covers both PostgREST ({code,message,details,hint}) and GoTrue
// ({code,error_code,msg} or {error,error_description}) error bodies.
type apiError struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
	Err              string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func (e *apiError) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	if len(e.Code) == 0 || string(e.Code) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Code, &s); err == nil {
		return s
	}
	return string(e.Code)
}

func (e *apiError) message() string {
	for _, m := range []string{e.Message, e.Msg, e.ErrorDescription, e.Err} {
		if m != "" {
			return m
		}
	}
	return ""
}

// check turns a failed call into an error. Transport failures are returned as-is.
func check(res *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !res.IsError() {
		return nil
	}

	gwErr := &gateway.Error{Status: res.StatusCode()}
	if body, ok := res.Error().(*apiError); ok && body != nil {
		gwErr.Code = body.code()
		gwErr.Message = body.message()
		gwErr.Details = body.Details
		gwErr.Hint = body.Hint
	}
	if gwErr.Message == "" {
		gwErr.Message = fmt.Sprintf("request failed with status %d %s", res.StatusCode(), http.StatusText(res.StatusCode()))
	}
	return gwErr
}
