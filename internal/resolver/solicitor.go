package resolver

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// DefaultQuoteTimeout bounds each agent's pricing request.
const DefaultQuoteTimeout = 5 * time.Second

// Solicitor fans a pricing request out to every registered agent
// concurrently and collects the bids that survive. Agents that error, time
// out, or return malformed payloads are logged and excluded; solicitation
// itself never fails.
type Solicitor struct {
	dir     *Directory
	client  *Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewSolicitor creates a Solicitor over the given directory and agent
// client. timeout bounds each individual request; zero means
// DefaultQuoteTimeout.
func NewSolicitor(dir *Directory, client *Client, timeout time.Duration, logger *slog.Logger) *Solicitor {
	if timeout <= 0 {
		timeout = DefaultQuoteTimeout
	}
	return &Solicitor{
		dir:     dir,
		client:  client,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "solicitor")),
	}
}

// Solicit queries all agents in parallel and returns the surviving bids in
// directory order. It returns once every request has resolved or timed out;
// an empty directory yields an empty list and the caller decides whether
// that is fatal.
func (s *Solicitor) Solicit(ctx context.Context, intent domain.TradeIntent, user string) []domain.ResolverBid {
	agents := s.dir.All()
	if len(agents) == 0 {
		s.logger.WarnContext(ctx, "no resolvers registered")
		return nil
	}

	// Fixed-size slot per agent keeps directory order for the selector's
	// first-wins tie-break.
	results := make([]*domain.ResolverBid, len(agents))

	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range agents {
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()

			start := time.Now()
			bid, err := s.client.Quote(reqCtx, agent, intent, user)
			if err != nil {
				s.logger.WarnContext(ctx, "resolver excluded from auction",
					slog.String("resolver", agent.Name),
					slog.Duration("elapsed", time.Since(start)),
					slog.String("error", err.Error()),
				)
				return nil
			}

			s.logger.DebugContext(ctx, "resolver bid received",
				slog.String("resolver", agent.Name),
				slog.Duration("elapsed", time.Since(start)),
				slog.Uint64("share_amount", bid.ShareAmount),
				slog.Uint64("stable_amount", bid.StableAmount),
			)
			results[i] = &bid
			return nil
		})
	}
	// Workers always return nil; Wait only joins.
	_ = g.Wait()

	bids := make([]domain.ResolverBid, 0, len(agents))
	for _, r := range results {
		if r != nil {
			bids = append(bids, *r)
		}
	}

	s.logger.InfoContext(ctx, "solicitation complete",
		slog.Int("queried", len(agents)),
		slog.Int("responded", len(bids)),
	)
	return bids
}
