package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config that passes validation in server mode.
func validConfig() Config {
	cfg := Defaults()
	cfg.Coordinator.SigningSeed = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	cfg.Resolvers.Agents = []ResolverEntry{
		{ID: "resolver-alpha", Name: "Alpha", URL: "http://alpha:9100"},
		{ID: "resolver-beta", Name: "Beta", URL: "http://beta:9100"},
	}
	return cfg
}

func TestValidate_DefaultsAreIncomplete(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	// Defaults lack a signing identity and a resolver directory.
	assert.Contains(t, err.Error(), "signing_seed")
	assert.Contains(t, err.Error(), "at least one agent")
}

func TestValidate_FullConfigPasses(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "turbo"
	cfg.Ledger.BaseURL = ""
	cfg.Watcher.Interval = duration{0}
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "ledger: base_url")
	assert.Contains(t, err.Error(), "watcher: interval")
	assert.Contains(t, err.Error(), "redis: addr")
}

func TestValidate_DuplicateAgentIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Resolvers.Agents = append(cfg.Resolvers.Agents, ResolverEntry{
		ID: "resolver-alpha", Name: "Alpha again", URL: "http://alpha2:9100",
	})

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate agent id "resolver-alpha"`)
}

func TestValidate_EncryptedSeedNeedsPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Coordinator.SigningSeed = ""
	cfg.Coordinator.EncryptedSeedPath = "/etc/coordinator/seed.enc.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestValidate_FeeBpsBound(t *testing.T) {
	cfg := validConfig()
	cfg.Coordinator.PlatformFeeBps = 10_000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform_fee_bps")
}

func TestValidate_MaintenanceModeRequiresS3(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "maintenance"
	cfg.Resolvers.Agents = nil // allowed outside server mode
	cfg.S3.Endpoint = ""
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: endpoint")
	assert.Contains(t, err.Error(), "s3: bucket")
}

func TestValidate_MaintenanceModeAllowsEmptyDirectory(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "maintenance"
	cfg.Resolvers.Agents = nil

	assert.NoError(t, cfg.Validate())
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "maintenance"

[coordinator]
signing_seed = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
platform_fee_bps = 25

[ledger]
base_url = "http://ledger:4943"
timeout = "10s"

[watcher]
interval = "1s"
max_attempts = 5

[[resolvers.agents]]
id = "resolver-alpha"
name = "Alpha"
url = "http://alpha:9100"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "maintenance", cfg.Mode)
	assert.Equal(t, uint64(25), cfg.Coordinator.PlatformFeeBps)
	assert.Equal(t, "http://ledger:4943", cfg.Ledger.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Ledger.Timeout.Duration)
	assert.Equal(t, time.Second, cfg.Watcher.Interval.Duration)
	assert.Equal(t, 5, cfg.Watcher.MaxAttempts)
	require.Len(t, cfg.Resolvers.Agents, 1)
	assert.Equal(t, "resolver-alpha", cfg.Resolvers.Agents[0].ID)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[coordinator]
signing_seed = "from-file"
`), 0o600))

	t.Setenv("COORD_SIGNING_SEED", "from-env")
	t.Setenv("COORD_WATCHER_INTERVAL", "7s")
	t.Setenv("COORD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("COORD_POSTGRES_PORT", "5433")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Coordinator.SigningSeed)
	assert.Equal(t, 7*time.Second, cfg.Watcher.Interval.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5433, cfg.Postgres.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestRedactedConfig_HidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Coordinator.KeyPassword = "hunter2"
	cfg.Resolvers.APISecret = "shared-secret"
	cfg.Postgres.Password = "pg-secret"
	cfg.Redis.Password = "redis-secret"
	cfg.S3.AccessKey = "AKIA..."
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.APIKey = "api-key"
	cfg.Notify.TelegramToken = "tg-token"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/secret"

	r := RedactedConfig(&cfg)

	assert.Equal(t, "***", r.Coordinator.SigningSeed)
	assert.Equal(t, "***", r.Coordinator.KeyPassword)
	assert.Equal(t, "***", r.Resolvers.APISecret)
	assert.Equal(t, "***", r.Postgres.Password)
	assert.Equal(t, "***", r.Redis.Password)
	assert.Equal(t, "***", r.S3.AccessKey)
	assert.Equal(t, "***", r.S3.SecretKey)
	assert.Equal(t, "***", r.Server.APIKey)
	assert.Equal(t, "***", r.Notify.TelegramToken)
	assert.Equal(t, "***", r.Notify.DiscordWebhookURL)

	// Non-secret fields survive.
	assert.Equal(t, cfg.Ledger.BaseURL, r.Ledger.BaseURL)
	assert.Equal(t, len(cfg.Resolvers.Agents), len(r.Resolvers.Agents))

	// Redaction must not mutate the original.
	assert.NotEqual(t, "***", cfg.Coordinator.SigningSeed)
}
