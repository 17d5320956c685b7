package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xfusionlabs/coordinator/internal/server"
	"github.com/xfusionlabs/coordinator/internal/server/handler"
)

// shutdownGrace bounds how long in-flight requests get to finish on
// shutdown.
const shutdownGrace = 10 * time.Second

// ServerMode runs the HTTP + WebSocket API until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	if !a.cfg.Server.Enabled {
		return errors.New("app: server mode requires server.enabled = true")
	}

	logger := a.logger

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(logger),
		Quotes:      handler.NewQuoteHandler(deps.Quotes, logger),
		Assignments: handler.NewAssignmentHandler(deps.Assignments, logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, deps.Hub, logger)

	g, gctx := errgroup.WithContext(ctx)

	if deps.Hub != nil {
		g.Go(func() error {
			if err := deps.Hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// MaintenanceMode runs the ledger recovery operations and round archival
// once, then exits. Intended for a cron or one-shot container.
func (a *App) MaintenanceMode(ctx context.Context, deps *Dependencies) error {
	logger := a.logger

	recovered, err := deps.Ledger.RecoverTimeouts(ctx)
	if err != nil {
		return fmt.Errorf("app: recover timeouts: %w", err)
	}
	logger.InfoContext(ctx, "timed-out transactions recovered",
		slog.Uint64("count", uint64(recovered)),
	)

	removed, err := deps.Ledger.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("app: cleanup expired: %w", err)
	}
	logger.InfoContext(ctx, "expired quotes cleaned up",
		slog.Uint64("count", uint64(removed)),
	)

	if deps.Archiver != nil {
		archived, err := deps.Archiver.ArchiveRounds(ctx, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("app: archive rounds: %w", err)
		}
		logger.InfoContext(ctx, "settled rounds archived",
			slog.Int64("count", archived),
		)
	}

	return nil
}
