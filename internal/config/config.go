// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rylogix/VentBoard/internal/observability"

	"github.com/spf13/viper"
)

// MissingSupabaseConfig is shown in place of the feed when the hosted gateway has no
// credentials.
const MissingSupabaseConfig = "Missing Supabase configuration. Set VITE_SUPABASE_URL and VITE_SUPABASE_ANON_KEY."

// Gateway and backend names.
const (
	GatewayPostgrest = "postgrest"
	GatewayLocal     = "local"

	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNATS   = "nats"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultJWTSecret = "ventboard-dev-secret-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env       string `mapstructure:"APP_ENV"`
	Port      string `mapstructure:"PORT"`
	StaticDir string `mapstructure:"STATIC_DIR"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`

	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	SupabaseURL     string `mapstructure:"VITE_SUPABASE_URL"`
	SupabaseAnonKey string `mapstructure:"VITE_SUPABASE_ANON_KEY"`
	Gateway         string `mapstructure:"GATEWAY"`

	PageSize   int    `mapstructure:"PAGE_SIZE"`
	ReplyOrder string `mapstructure:"REPLY_ORDER"`

	CacheBackend string `mapstructure:"CACHE_BACKEND"`
	RedisURL     string `mapstructure:"REDIS_URL"`
	NATSURL      string `mapstructure:"NATS_URL"`
	NATSBucket   string `mapstructure:"NATS_BUCKET"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBPath     string `mapstructure:"DB_PATH"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	PostCooldown    time.Duration `mapstructure:"POST_COOLDOWN"`
	DenyAuthorReads bool          `mapstructure:"DENY_AUTHOR_READS"`
	SessionTTL      time.Duration `mapstructure:"SESSION_TTL"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		observability.Logger.Info("loaded profile-specific configuration", "file", "config."+env+".yml")
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "5173")
	viper.SetDefault("STATIC_DIR", "public")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ALLOWED_ORIGINS", "*")

	viper.SetDefault("VITE_SUPABASE_URL", "")
	viper.SetDefault("VITE_SUPABASE_ANON_KEY", "")
	viper.SetDefault("GATEWAY", GatewayPostgrest)

	viper.SetDefault("PAGE_SIZE", 12)
	viper.SetDefault("REPLY_ORDER", "desc")

	viper.SetDefault("CACHE_BACKEND", CacheMemory)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	viper.SetDefault("NATS_BUCKET", "ventboard")

	viper.SetDefault("DB_DRIVER", DriverSQLite)
	viper.SetDefault("DB_PATH", "ventboard.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "ventboard")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "ventboard")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("POST_COOLDOWN", "1h")
	viper.SetDefault("DENY_AUTHOR_READS", false)
	viper.SetDefault("SESSION_TTL", "1h")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

func (c *Config) normalize() {
	lower := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	c.Env = lower(c.Env)
	c.Gateway = lower(c.Gateway)
	c.CacheBackend = lower(c.CacheBackend)
	c.DBDriver = lower(c.DBDriver)
	c.DBSSLMode = lower(c.DBSSLMode)
	c.ReplyOrder = lower(c.ReplyOrder)
	c.LogLevel = lower(c.LogLevel)
	c.SupabaseURL = strings.TrimSpace(c.SupabaseURL)
	c.SupabaseAnonKey = strings.TrimSpace(c.SupabaseAnonKey)
}

// IsProduction reports whether the app runs with the production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and consistent.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.PageSize <= 0 {
		return errors.New("PAGE_SIZE must be positive")
	}
	switch c.ReplyOrder {
	case "asc", "desc":
	default:
		return fmt.Errorf("REPLY_ORDER must be asc or desc, got %q", c.ReplyOrder)
	}
	switch c.Gateway {
	case GatewayPostgrest, GatewayLocal:
	default:
		return fmt.Errorf("GATEWAY must be %s or %s, got %q", GatewayPostgrest, GatewayLocal, c.Gateway)
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis, CacheNATS:
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory, redis or nats, got %q", c.CacheBackend)
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.PostCooldown < 0 || c.SessionTTL < 0 {
		return errors.New("POST_COOLDOWN and SESSION_TTL cannot be negative")
	}

	if c.Gateway == GatewayLocal {
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required for the local gateway")
		}
		if c.IsProduction() {
			if c.JWTSecret == defaultJWTSecret {
				return errors.New("JWT_SECRET must be changed from the default value in production")
			}
			if len(c.JWTSecret) < 32 {
				return errors.New("JWT_SECRET must be at least 32 characters in production")
			}
			if c.DBDriver == DriverPostgres && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
				return errors.New("DB_SSLMODE must not be disabled in production")
			}
		}
	}

	return nil
}

// GatewayConfigError returns the fixed configuration error shown when the hosted
// gateway cannot be reached by design, or "" when the configuration is usable.
func (c *Config) GatewayConfigError() string {
	if c.Gateway == GatewayPostgrest && (c.SupabaseURL == "" || c.SupabaseAnonKey == "") {
		return MissingSupabaseConfig
	}
	return ""
}

// PublicEnv is the configuration exposed to browsers through /config.js.
func (c *Config) PublicEnv() map[string]string {
	return map[string]string{
		"VITE_SUPABASE_URL":      c.SupabaseURL,
		"VITE_SUPABASE_ANON_KEY": c.SupabaseAnonKey,
	}
}

// TracingConfig derives the tracer settings.
func (c *Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:  "ventboard",
		Environment:  c.Env,
		Enabled:      c.TracingEnabled,
		Exporter:     c.TracingExporter,
		OTLPEndpoint: c.OTLPEndpoint,
		SamplerRatio: c.TracingSampleRatio,
	}
}
