package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies COORD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known COORD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Coordinator ──
	setStr(&cfg.Coordinator.SigningSeed, "COORD_SIGNING_SEED")
	setStr(&cfg.Coordinator.SeedPath, "COORD_SEED_PATH")
	setStr(&cfg.Coordinator.EncryptedSeedPath, "COORD_ENCRYPTED_SEED_PATH")
	setStr(&cfg.Coordinator.KeyPassword, "COORD_KEY_PASSWORD")
	setUint64(&cfg.Coordinator.PlatformFeeBps, "COORD_PLATFORM_FEE_BPS")

	// ── Ledger ──
	setStr(&cfg.Ledger.BaseURL, "COORD_LEDGER_BASE_URL")
	setDuration(&cfg.Ledger.Timeout, "COORD_LEDGER_TIMEOUT")

	// ── Resolvers ──
	setStr(&cfg.Resolvers.APISecret, "COORD_RESOLVER_API_SECRET")
	setDuration(&cfg.Resolvers.SolicitTimeout, "COORD_RESOLVER_SOLICIT_TIMEOUT")

	// ── Watcher ──
	setDuration(&cfg.Watcher.Interval, "COORD_WATCHER_INTERVAL")
	setInt(&cfg.Watcher.MaxAttempts, "COORD_WATCHER_MAX_ATTEMPTS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "COORD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "COORD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "COORD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "COORD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "COORD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "COORD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "COORD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "COORD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "COORD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "COORD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "COORD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COORD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COORD_REDIS_DB")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "COORD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COORD_S3_REGION")
	setStr(&cfg.S3.Bucket, "COORD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COORD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COORD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "COORD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "COORD_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "COORD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "COORD_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "COORD_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "COORD_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "COORD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "COORD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "COORD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "COORD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "COORD_MODE")
	setStr(&cfg.LogLevel, "COORD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
