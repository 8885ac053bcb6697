// Package bootstrap wires configuration into a running board client: cache, gateway,
// store, action coordinator and session bootstrap.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Rylogix/VentBoard/internal/actions"
	"github.com/Rylogix/VentBoard/internal/cache"
	"github.com/Rylogix/VentBoard/internal/config"
	"github.com/Rylogix/VentBoard/internal/cooldown"
	"github.com/Rylogix/VentBoard/internal/database"
	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/gateway/local"
	"github.com/Rylogix/VentBoard/internal/gateway/postgrest"
	"github.com/Rylogix/VentBoard/internal/observability"
	"github.com/Rylogix/VentBoard/internal/session"
	"github.com/Rylogix/VentBoard/internal/state"
	"github.com/Rylogix/VentBoard/internal/store"

	"gorm.io/gorm"
)

// Options control client initialization.
type Options struct {
	// SessionNamespace separates persisted sessions of different clients sharing a cache.
	SessionNamespace string
	// KV overrides the configured cache backend.
	KV  cache.KV
	Now func() time.Time
}

// Client is a fully wired board client.
type Client struct {
	Config  *config.Config
	KV      cache.KV
	DB      *gorm.DB
	Gateway gateway.Gateway
	Store   *store.Store[state.State]
	Actions *actions.Coordinator
	Session *session.Bootstrap

	closers []func() error
}

// NewKV opens the cache backend selected by cfg.
func NewKV(ctx context.Context, cfg *config.Config) (cache.KV, func() error, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		kv := cache.NewRedisKV(client, "ventboard:")
		return kv, kv.Close, nil
	case config.CacheNATS:
		kv, err := cache.NewNATSKV(ctx, cfg.NATSURL, cfg.NATSBucket)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case config.CacheMemory, "":
		return cache.NewMemoryKV(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", cfg.CacheBackend)
	}
}

// InitClient builds a client from cfg. A missing hosted-gateway configuration is not an
// error: the client comes up with the configuration error published to its store and
// every action disabled.
func InitClient(ctx context.Context, cfg *config.Config, opts Options) (*Client, error) {
	c := &Client{Config: cfg}

	kv := opts.KV
	if kv == nil {
		var closeKV func() error
		var err error
		kv, closeKV, err = NewKV(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("cache initialization failed: %w", err)
		}
		c.closers = append(c.closers, closeKV)
	}
	c.KV = kv

	namespace := opts.SessionNamespace
	if namespace == "" {
		namespace = cfg.Gateway
	}
	sessions := gateway.NewSessionStore(kv, namespace)

	configError := cfg.GatewayConfigError()
	var caps gateway.Capabilities
	if configError == "" {
		gw, negotiated, err := c.openGateway(ctx, cfg, sessions, opts.Now)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.Gateway = gateway.Instrument(gw)
		caps = negotiated
	} else {
		observability.Logger.Error("gateway disabled", slog.String("reason", configError))
	}

	c.Store = store.New(state.Initial(cfg.PageSize))
	c.Actions = actions.New(c.Store, c.Gateway, actions.Options{
		PageSize:     cfg.PageSize,
		ReplyOrder:   gateway.ParseOrder(cfg.ReplyOrder),
		Capabilities: caps,
		ConfigError:  configError,
		Cooldowns:    cooldown.NewCache(kv, nil),
		Now:          opts.Now,
	})

	var auth gateway.Auth
	if c.Gateway != nil {
		auth = c.Gateway
	}
	c.Session = session.New(auth, c.Store, c.Actions, nil)

	return c, nil
}

func (c *Client) openGateway(ctx context.Context, cfg *config.Config, sessions *gateway.SessionStore, now func() time.Time) (gateway.Gateway, gateway.Capabilities, error) {
	switch cfg.Gateway {
	case config.GatewayLocal:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, gateway.Capabilities{}, fmt.Errorf("database connection failed: %w", err)
		}
		c.DB = db
		c.closers = append(c.closers, func() error { return database.Close(db) })

		gw, err := local.New(db, local.Options{
			JWTSecret:       cfg.JWTSecret,
			Cooldown:        cfg.PostCooldown,
			SessionTTL:      cfg.SessionTTL,
			DenyAuthorReads: cfg.DenyAuthorReads,
			Sessions:        sessions,
			Now:             now,
		})
		if err != nil {
			return nil, gateway.Capabilities{}, err
		}
		return gw, gateway.FullCapabilities, nil

	case config.GatewayPostgrest:
		client, err := postgrest.New(postgrest.Config{
			URL:      cfg.SupabaseURL,
			AnonKey:  cfg.SupabaseAnonKey,
			Sessions: sessions,
			Now:      now,
		})
		if err != nil {
			return nil, gateway.Capabilities{}, err
		}
		c.closers = append(c.closers, client.Close)

		caps, err := client.Negotiate(ctx)
		if err != nil {
			// Optional columns stay off; the required ones are all the board needs.
			observability.Logger.Warn("capability negotiation failed", slog.String("error", err.Error()))
		}
		client.WithCapabilities(caps)
		observability.Logger.Info("gateway capabilities negotiated",
			slog.Bool("post_names", caps.PostNames),
			slog.Bool("reply_names", caps.ReplyNames),
			slog.Bool("reply_counts", caps.ReplyCounts),
		)
		return client, caps, nil

	default:
		return nil, gateway.Capabilities{}, fmt.Errorf("unsupported gateway %q", cfg.Gateway)
	}
}

// Start listens for session changes and runs the session bootstrap.
func (c *Client) Start(ctx context.Context) error {
	c.Session.Listen()
	return c.Session.Start(ctx)
}

// Close stops the session listener and releases the cache, database and HTTP client in
// reverse order of creation.
func (c *Client) Close() error {
	if c.Session != nil {
		c.Session.Close()
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
