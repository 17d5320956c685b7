package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/xfusionlabs/coordinator/internal/blob/s3"
	"github.com/xfusionlabs/coordinator/internal/cache/redis"
	"github.com/xfusionlabs/coordinator/internal/config"
	"github.com/xfusionlabs/coordinator/internal/crypto"
	"github.com/xfusionlabs/coordinator/internal/domain"
	"github.com/xfusionlabs/coordinator/internal/ledger"
	"github.com/xfusionlabs/coordinator/internal/notify"
	"github.com/xfusionlabs/coordinator/internal/resolver"
	"github.com/xfusionlabs/coordinator/internal/server/ws"
	"github.com/xfusionlabs/coordinator/internal/service"
	"github.com/xfusionlabs/coordinator/internal/settlement"
	"github.com/xfusionlabs/coordinator/internal/store/postgres"
)

// Dependencies bundles every component the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Signer    *crypto.Signer
	Directory *resolver.Directory
	Ledger    *ledger.Client

	QuoteCache domain.QuoteCache
	RoundStore domain.RoundStore

	Quotes      *service.QuoteService
	Assignments *service.AssignmentService

	Hub      *ws.Hub
	Notifier *notify.Notifier
	Archiver *s3blob.Archiver
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Signing identity. Fatal if unresolvable: the coordinator must
	// never run without its key. ---
	seed, err := crypto.LoadSeed(crypto.KeyConfig{
		RawSeed:           cfg.Coordinator.SigningSeed,
		SeedPath:          cfg.Coordinator.SeedPath,
		EncryptedSeedPath: cfg.Coordinator.EncryptedSeedPath,
		KeyPassword:       cfg.Coordinator.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signing key: %w", err)
	}
	signer, err := crypto.NewSigner(seed)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signer: %w", err)
	}
	deps.Signer = signer
	logger.InfoContext(ctx, "signing key loaded",
		slog.String("public_key", signer.PublicKeyHex()),
	)

	// --- Resolver directory ---
	agents := make([]domain.ResolverInfo, 0, len(cfg.Resolvers.Agents))
	for _, a := range cfg.Resolvers.Agents {
		agents = append(agents, domain.ResolverInfo{
			ID:   a.ID,
			Name: a.Name,
			URL:  strings.TrimRight(a.URL, "/"),
		})
	}
	deps.Directory = resolver.NewDirectory(agents)

	// --- Ledger gateway ---
	ledgerClient, err := ledger.New(ledger.ClientConfig{
		BaseURL: cfg.Ledger.BaseURL,
		Timeout: cfg.Ledger.Timeout.Duration,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: ledger: %w", err)
	}
	deps.Ledger = ledgerClient

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.RoundStore = postgres.NewRoundStore(pgClient.Pool())

	// --- Redis ---
	redisClient, err := redis.NewClient(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.QuoteCache = redis.NewQuoteCache(redisClient)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- WebSocket hub (server mode only) ---
	if mode == "server" && cfg.Server.Enabled {
		deps.Hub = ws.NewHub(logger)
	}

	// --- S3 archiver (maintenance mode only) ---
	if mode == "maintenance" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3Client, deps.RoundStore, logger)
	}

	// --- Resolver boundary and services ---
	agentClient := resolver.NewClient(cfg.Resolvers.APISecret)
	solicitor := resolver.NewSolicitor(deps.Directory, agentClient, cfg.Resolvers.SolicitTimeout.Duration, logger)

	watcher := settlement.NewWatcher(ledgerClient, nil, settlement.RetryPolicy{
		Interval:    cfg.Watcher.Interval.Duration,
		MaxAttempts: cfg.Watcher.MaxAttempts,
	}, logger)

	deps.Quotes = service.NewQuoteService(
		solicitor, ledgerClient, signer, deps.Directory,
		deps.QuoteCache, deps.RoundStore,
		cfg.Coordinator.PlatformFeeBps, logger,
	)

	var publisher service.StatusPublisher
	if deps.Hub != nil {
		publisher = deps.Hub
	}
	deps.Assignments = service.NewAssignmentService(
		ledgerClient, deps.Directory, agentClient, watcher,
		deps.RoundStore, publisher, deps.Notifier, logger,
	)

	return deps, cleanup, nil
}
