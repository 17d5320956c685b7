// Package config defines the top-level configuration for the coordinator
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by COORD_* environment variables.
type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Ledger      LedgerConfig      `toml:"ledger"`
	Resolvers   ResolverConfig    `toml:"resolvers"`
	Watcher     WatcherConfig     `toml:"watcher"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// CoordinatorConfig holds the signing identity and auction parameters.
type CoordinatorConfig struct {
	// SigningSeed is the hex-encoded Ed25519 seed. Prefer one of the file
	// based sources below in production.
	SigningSeed       string `toml:"signing_seed"`
	SeedPath          string `toml:"seed_path"`
	EncryptedSeedPath string `toml:"encrypted_seed_path"`
	KeyPassword       string `toml:"key_password"`

	// PlatformFeeBps is the platform's cut of the stable leg in basis points.
	PlatformFeeBps uint64 `toml:"platform_fee_bps"`
}

// LedgerConfig holds the settlement ledger gateway parameters.
type LedgerConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// ResolverEntry describes one registered resolver agent. Registration order
// is significant: it is the auction's tie-break order.
type ResolverEntry struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// ResolverConfig holds the agent directory and solicitation parameters.
type ResolverConfig struct {
	Agents         []ResolverEntry `toml:"agents"`
	APISecret      string          `toml:"api_secret"`
	SolicitTimeout duration        `toml:"solicit_timeout"`
}

// WatcherConfig holds the settlement poll loop parameters.
type WatcherConfig struct {
	Interval    duration `toml:"interval"`
	MaxAttempts int      `toml:"max_attempts"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "2m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Coordinator: CoordinatorConfig{
			PlatformFeeBps: 50,
		},
		Ledger: LedgerConfig{
			BaseURL: "http://localhost:4943",
			Timeout: duration{30 * time.Second},
		},
		Resolvers: ResolverConfig{
			SolicitTimeout: duration{5 * time.Second},
		},
		Watcher: WatcherConfig{
			Interval:    duration{2 * time.Second},
			MaxAttempts: 30,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "coordinator",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "coordinator-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"settlement_completed", "settlement_failed", "dispatch_failed"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":      true,
	"maintenance": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, maintenance)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Coordinator: at least one seed source must be resolvable. The process
	// must refuse to start without a signing identity.
	if c.Coordinator.SigningSeed == "" && c.Coordinator.SeedPath == "" && c.Coordinator.EncryptedSeedPath == "" {
		errs = append(errs, "coordinator: one of signing_seed, seed_path, or encrypted_seed_path must be set")
	}
	if c.Coordinator.EncryptedSeedPath != "" && c.Coordinator.KeyPassword == "" {
		errs = append(errs, "coordinator: key_password is required when encrypted_seed_path is set")
	}
	if c.Coordinator.PlatformFeeBps >= 10_000 {
		errs = append(errs, fmt.Sprintf("coordinator: platform_fee_bps must be < 10000, got %d", c.Coordinator.PlatformFeeBps))
	}

	// Ledger
	if c.Ledger.BaseURL == "" {
		errs = append(errs, "ledger: base_url must not be empty")
	}

	// Resolvers: an empty directory means every auction fails, which is a
	// deploy mistake in server mode.
	if strings.ToLower(c.Mode) == "server" && len(c.Resolvers.Agents) == 0 {
		errs = append(errs, "resolvers: at least one agent must be registered in server mode")
	}
	seen := make(map[string]bool, len(c.Resolvers.Agents))
	for i, a := range c.Resolvers.Agents {
		if a.ID == "" {
			errs = append(errs, fmt.Sprintf("resolvers: agent %d has empty id", i))
		}
		if a.URL == "" {
			errs = append(errs, fmt.Sprintf("resolvers: agent %q has empty url", a.ID))
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Sprintf("resolvers: duplicate agent id %q", a.ID))
		}
		seen[a.ID] = true
	}

	// Watcher
	if c.Watcher.Interval.Duration <= 0 {
		errs = append(errs, "watcher: interval must be > 0")
	}
	if c.Watcher.MaxAttempts < 1 {
		errs = append(errs, "watcher: max_attempts must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	// S3 is only required in maintenance mode, where archival runs.
	if strings.ToLower(c.Mode) == "maintenance" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty in maintenance mode")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty in maintenance mode")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
