// Package service holds the orchestration flows: the quote auction
// (solicit, select, sign, submit) and assignment execution (dispatch, watch,
// settle). Services depend on narrow interfaces so tests substitute every
// boundary.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/xfusionlabs/coordinator/internal/auction"
	"github.com/xfusionlabs/coordinator/internal/crypto"
	"github.com/xfusionlabs/coordinator/internal/domain"
	"github.com/xfusionlabs/coordinator/internal/resolver"
)

// DefaultPlatformFeeBps is the platform's cut of the stable leg in basis
// points.
const DefaultPlatformFeeBps = 50

// quoteValidity is how long a signed quote stays submittable.
const quoteValidity = 30 * time.Second

// settlementGrace extends the cache TTL past quote expiry so status lookups
// keep resolving while the settlement runs. Matches the ledger's transaction
// timeout.
const settlementGrace = 30 * time.Minute

// BidSolicitor fans a pricing request out to the agent fleet.
type BidSolicitor interface {
	Solicit(ctx context.Context, intent domain.TradeIntent, user string) []domain.ResolverBid
}

// LedgerGateway is the slice of the ledger boundary the services use.
type LedgerGateway interface {
	SubmitQuote(ctx context.Context, q domain.SignedQuote) (uint64, error)
	GetAssignment(ctx context.Context, id uint64) (domain.Assignment, error)
	GetTransaction(ctx context.Context, id uint64) (domain.Transaction, error)
}

// QuoteStatus is the combined view returned by status lookups: the cached
// auction artifact plus the live ledger settlement state.
type QuoteStatus struct {
	QuoteID      string                   `json:"quote_id"`
	AssignmentID uint64                   `json:"assignment_id"`
	ResolverID   string                   `json:"resolver_id"`
	Status       domain.TransactionStatus `json:"status"`
	Transaction  domain.Transaction       `json:"transaction"`
}

// QuoteService runs the quote auction end to end.
type QuoteService struct {
	solicitor BidSolicitor
	ledger    LedgerGateway
	signer    *crypto.Signer
	dir       *resolver.Directory
	cache     domain.QuoteCache
	rounds    domain.RoundStore
	logger    *slog.Logger

	feeBps uint64

	// Injected for deterministic tests.
	now   func() time.Time
	nonce func(now time.Time) uint64
}

// NewQuoteService creates a QuoteService. feeBps zero means
// DefaultPlatformFeeBps.
func NewQuoteService(
	solicitor BidSolicitor,
	ledger LedgerGateway,
	signer *crypto.Signer,
	dir *resolver.Directory,
	cache domain.QuoteCache,
	rounds domain.RoundStore,
	feeBps uint64,
	logger *slog.Logger,
) *QuoteService {
	if feeBps == 0 {
		feeBps = DefaultPlatformFeeBps
	}
	return &QuoteService{
		solicitor: solicitor,
		ledger:    ledger,
		signer:    signer,
		dir:       dir,
		cache:     cache,
		rounds:    rounds,
		logger:    logger.With(slog.String("component", "quote_service")),
		feeBps:    feeBps,
		now:       time.Now,
		nonce:     defaultNonce,
	}
}

// defaultNonce derives a nonce from the current epoch microseconds scaled to
// nanosecond range plus a random sub-microsecond component. Uniqueness is
// enforced ledger-side; this only needs to make collisions rare.
func defaultNonce(now time.Time) uint64 {
	return uint64(now.UnixMicro())*1000 + uint64(rand.IntN(1000))
}

// RequestQuote runs one auction round: solicit bids from every agent, select
// the single best, price the platform fee, sign the terms, and submit to the
// ledger for atomic validate-and-lock. On success the user's funds are
// locked and the returned result carries the assignment id.
//
// Ledger rejections are surfaced verbatim and never retried; a quote that
// failed validation once will fail identically forever.
func (s *QuoteService) RequestQuote(ctx context.Context, intent domain.TradeIntent, user string) (domain.QuoteResult, error) {
	if err := intent.Validate(); err != nil {
		return domain.QuoteResult{}, err
	}

	roundID := uuid.NewString()
	started := s.now()

	bids := s.solicitor.Solicit(ctx, intent, user)
	if len(bids) == 0 {
		s.recordRound(ctx, domain.AuctionRound{
			ID:        roundID,
			BundleID:  intent.BundleID,
			Operation: intent.Operation,
			User:      user,
			Status:    domain.RoundNoLiquidity,
			CreatedAt: started,
		})
		return domain.QuoteResult{}, fmt.Errorf("service: bundle %d: %w", intent.BundleID, domain.ErrNoLiquidity)
	}

	best, _ := auction.SelectBest(bids, intent.Operation)

	now := s.now()
	quote := domain.SignedQuote{
		BundleID:     intent.BundleID,
		Operation:    intent.Operation,
		ResolverID:   best.ResolverID,
		ShareAmount:  best.ShareAmount,
		StableAmount: best.StableAmount,
		AssetAmounts: best.AssetAmounts,
		Fee:          s.platformFee(best.StableAmount),
		Nonce:        s.nonce(now),
		ValidUntil:   now.Add(quoteValidity).UnixNano(),
	}
	quote.Signature = s.signer.Sign(quote)

	if quote.Expired(s.now()) {
		return domain.QuoteResult{}, fmt.Errorf("service: quote for bundle %d: %w", intent.BundleID, domain.ErrQuoteExpired)
	}

	assignmentID, err := s.ledger.SubmitQuote(ctx, quote)
	if err != nil {
		s.recordRound(ctx, domain.AuctionRound{
			ID:        roundID,
			BundleID:  intent.BundleID,
			Operation: intent.Operation,
			User:      user,
			BidCount:  len(bids),
			WinnerID:  best.ResolverID,
			Status:    domain.RoundRejected,
			Error:     err.Error(),
			CreatedAt: started,
		})
		return domain.QuoteResult{}, fmt.Errorf("service: submit quote for bundle %d: %w", intent.BundleID, err)
	}

	quoteID := uuid.NewString()
	rec := domain.QuoteRecord{
		QuoteID:      quoteID,
		RoundID:      roundID,
		Quote:        quote,
		AssignmentID: assignmentID,
	}
	ttl := time.Until(time.Unix(0, quote.ValidUntil)) + settlementGrace
	if err := s.cache.Put(ctx, rec, ttl); err != nil {
		// The ledger already holds the authoritative record. Losing the cache
		// entry only degrades status lookups.
		s.logger.WarnContext(ctx, "quote cache write failed",
			slog.String("quote_id", quoteID),
			slog.String("error", err.Error()),
		)
	}

	s.recordRound(ctx, domain.AuctionRound{
		ID:           roundID,
		QuoteID:      quoteID,
		BundleID:     intent.BundleID,
		Operation:    intent.Operation,
		User:         user,
		BidCount:     len(bids),
		WinnerID:     best.ResolverID,
		AssignmentID: assignmentID,
		Status:       domain.RoundAssigned,
		CreatedAt:    started,
	})

	resolverName := best.ResolverID
	if info, ok := s.dir.ByID(best.ResolverID); ok {
		resolverName = info.Name
	}

	s.logger.InfoContext(ctx, "quote accepted by ledger",
		slog.String("quote_id", quoteID),
		slog.Uint64("assignment_id", assignmentID),
		slog.String("winner", best.ResolverID),
		slog.Int("bids", len(bids)),
	)

	return domain.QuoteResult{
		QuoteID:      quoteID,
		AssignmentID: assignmentID,
		ResolverID:   best.ResolverID,
		ResolverName: resolverName,
		ShareAmount:  best.ShareAmount,
		StableAmount: best.StableAmount,
		Fee:          quote.Fee,
		ValidUntil:   quote.ValidUntil,
	}, nil
}

// GetQuoteStatus resolves a quote id to its live settlement state: cache
// lookup for the assignment binding, then a ledger read for the transaction.
func (s *QuoteService) GetQuoteStatus(ctx context.Context, quoteID string) (QuoteStatus, error) {
	rec, err := s.cache.Get(ctx, quoteID)
	if err != nil {
		return QuoteStatus{}, fmt.Errorf("service: quote %s: %w", quoteID, err)
	}

	tx, err := s.ledger.GetTransaction(ctx, rec.AssignmentID)
	if err != nil {
		return QuoteStatus{}, fmt.Errorf("service: transaction for quote %s: %w", quoteID, err)
	}

	return QuoteStatus{
		QuoteID:      rec.QuoteID,
		AssignmentID: rec.AssignmentID,
		ResolverID:   rec.Quote.ResolverID,
		Status:       tx.Status,
		Transaction:  tx,
	}, nil
}

// platformFee computes the platform's cut of the stable leg in basis points.
func (s *QuoteService) platformFee(stableAmount uint64) uint64 {
	return stableAmount * s.feeBps / 10_000
}

// recordRound persists the audit record. Store failures are logged, not
// surfaced: auditing never blocks the trade path.
func (s *QuoteService) recordRound(ctx context.Context, round domain.AuctionRound) {
	if s.rounds == nil {
		return
	}
	if err := s.rounds.Insert(ctx, round); err != nil {
		s.logger.WarnContext(ctx, "round insert failed",
			slog.String("round_id", round.ID),
			slog.String("error", err.Error()),
		)
	}
}
