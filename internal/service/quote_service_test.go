package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfusionlabs/coordinator/internal/crypto"
	"github.com/xfusionlabs/coordinator/internal/domain"
	"github.com/xfusionlabs/coordinator/internal/resolver"
)

const testSeed = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSolicitor returns a fixed bid list.
type fakeSolicitor struct {
	bids []domain.ResolverBid
}

func (f *fakeSolicitor) Solicit(ctx context.Context, intent domain.TradeIntent, user string) []domain.ResolverBid {
	return f.bids
}

// fakeLedger records submissions and plays back a scripted result.
type fakeLedger struct {
	submitted    []domain.SignedQuote
	assignmentID uint64
	submitErr    error
	tx           domain.Transaction
	assignment   domain.Assignment
}

func (f *fakeLedger) SubmitQuote(ctx context.Context, q domain.SignedQuote) (uint64, error) {
	f.submitted = append(f.submitted, q)
	if f.submitErr != nil {
		return 0, f.submitErr
	}
	return f.assignmentID, nil
}

func (f *fakeLedger) GetAssignment(ctx context.Context, id uint64) (domain.Assignment, error) {
	return f.assignment, nil
}

func (f *fakeLedger) GetTransaction(ctx context.Context, id uint64) (domain.Transaction, error) {
	return f.tx, nil
}

// memCache is an in-memory QuoteCache.
type memCache struct {
	recs map[string]domain.QuoteRecord
	ttls map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{recs: map[string]domain.QuoteRecord{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Put(ctx context.Context, rec domain.QuoteRecord, ttl time.Duration) error {
	c.recs[rec.QuoteID] = rec
	c.ttls[rec.QuoteID] = ttl
	return nil
}

func (c *memCache) Get(ctx context.Context, quoteID string) (domain.QuoteRecord, error) {
	rec, ok := c.recs[quoteID]
	if !ok {
		return domain.QuoteRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

// memRounds is an in-memory RoundStore.
type memRounds struct {
	inserted []domain.AuctionRound
	settled  map[uint64]domain.RoundStatus
	updated  map[uint64]domain.RoundStatus
}

func newMemRounds() *memRounds {
	return &memRounds{
		settled: map[uint64]domain.RoundStatus{},
		updated: map[uint64]domain.RoundStatus{},
	}
}

func (r *memRounds) Insert(ctx context.Context, round domain.AuctionRound) error {
	r.inserted = append(r.inserted, round)
	return nil
}

func (r *memRounds) UpdateStatus(ctx context.Context, assignmentID uint64, status domain.RoundStatus) error {
	r.updated[assignmentID] = status
	return nil
}

func (r *memRounds) MarkSettled(ctx context.Context, assignmentID uint64, status domain.RoundStatus, errMsg string, settledAt time.Time) error {
	r.settled[assignmentID] = status
	return nil
}

func (r *memRounds) Get(ctx context.Context, id string) (domain.AuctionRound, error) {
	for _, round := range r.inserted {
		if round.ID == id {
			return round, nil
		}
	}
	return domain.AuctionRound{}, domain.ErrNotFound
}

func (r *memRounds) ListSettledBefore(ctx context.Context, before time.Time, limit int) ([]domain.AuctionRound, error) {
	return nil, nil
}

func testDirectory() *resolver.Directory {
	return resolver.NewDirectory([]domain.ResolverInfo{
		{ID: "resolver-alpha", Name: "Alpha", URL: "http://alpha"},
		{ID: "resolver-beta", Name: "Beta", URL: "http://beta"},
	})
}

func newTestQuoteService(t *testing.T, sol BidSolicitor, led LedgerGateway, cache domain.QuoteCache, rounds domain.RoundStore) *QuoteService {
	t.Helper()
	signer, err := crypto.NewSigner(testSeed)
	require.NoError(t, err)

	s := NewQuoteService(sol, led, signer, testDirectory(), cache, rounds, 50, testLogger())
	s.now = func() time.Time { return time.Unix(1_756_700_000, 0) }
	s.nonce = func(now time.Time) uint64 { return 12345 }
	return s
}

func buyIntent() domain.TradeIntent {
	return domain.TradeIntent{
		BundleID: 7,
		Operation: domain.Operation{
			Kind:         domain.OpBuy,
			StableAmount: 100_000_000,
		},
	}
}

func TestRequestQuote_SelectsBestAndSubmits(t *testing.T) {
	sol := &fakeSolicitor{bids: []domain.ResolverBid{
		{ResolverID: "resolver-alpha", ShareAmount: 950_000_000, StableAmount: 100_000_000},
		{ResolverID: "resolver-beta", ShareAmount: 980_000_000, StableAmount: 100_000_000},
	}}
	led := &fakeLedger{assignmentID: 42}
	cache := newMemCache()
	rounds := newMemRounds()
	s := newTestQuoteService(t, sol, led, cache, rounds)

	result, err := s.RequestQuote(context.Background(), buyIntent(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "resolver-beta", result.ResolverID)
	assert.Equal(t, "Beta", result.ResolverName)
	assert.Equal(t, uint64(42), result.AssignmentID)
	assert.Equal(t, uint64(980_000_000), result.ShareAmount)
	// 50 bps of the stable leg.
	assert.Equal(t, uint64(500_000), result.Fee)

	require.Len(t, led.submitted, 1)
	q := led.submitted[0]
	assert.Equal(t, uint64(12345), q.Nonce)
	assert.Equal(t, time.Unix(1_756_700_000, 0).Add(30*time.Second).UnixNano(), q.ValidUntil)

	// The submitted signature must verify against the coordinator key.
	signer, err := crypto.NewSigner(testSeed)
	require.NoError(t, err)
	ok, err := crypto.Verify(signer.PublicKeyHex(), q, q.Signature)
	require.NoError(t, err)
	assert.True(t, ok)

	// Cached record binds the quote id to the assignment.
	require.NotEmpty(t, result.QuoteID)
	rec, err := cache.Get(context.Background(), result.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), rec.AssignmentID)

	// Audit round recorded as assigned.
	require.Len(t, rounds.inserted, 1)
	assert.Equal(t, domain.RoundAssigned, rounds.inserted[0].Status)
	assert.Equal(t, 2, rounds.inserted[0].BidCount)
	assert.Equal(t, "resolver-beta", rounds.inserted[0].WinnerID)
}

func TestRequestQuote_NoBidsSkipsLedger(t *testing.T) {
	sol := &fakeSolicitor{bids: nil}
	led := &fakeLedger{assignmentID: 42}
	rounds := newMemRounds()
	s := newTestQuoteService(t, sol, led, newMemCache(), rounds)

	_, err := s.RequestQuote(context.Background(), buyIntent(), "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoLiquidity)
	assert.Empty(t, led.submitted, "no liquidity must never reach the ledger")

	require.Len(t, rounds.inserted, 1)
	assert.Equal(t, domain.RoundNoLiquidity, rounds.inserted[0].Status)
}

func TestRequestQuote_LedgerRejectionSurfacedVerbatim(t *testing.T) {
	sol := &fakeSolicitor{bids: []domain.ResolverBid{
		{ResolverID: "resolver-alpha", ShareAmount: 950_000_000, StableAmount: 100_000_000},
	}}
	led := &fakeLedger{submitErr: domain.ErrDuplicateNonce}
	rounds := newMemRounds()
	s := newTestQuoteService(t, sol, led, newMemCache(), rounds)

	_, err := s.RequestQuote(context.Background(), buyIntent(), "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateNonce)
	assert.Len(t, led.submitted, 1, "rejections must not be retried")

	require.Len(t, rounds.inserted, 1)
	assert.Equal(t, domain.RoundRejected, rounds.inserted[0].Status)
}

func TestRequestQuote_RejectsInvalidIntent(t *testing.T) {
	s := newTestQuoteService(t, &fakeSolicitor{}, &fakeLedger{}, newMemCache(), newMemRounds())

	bad := domain.TradeIntent{BundleID: 7, Operation: domain.Operation{Kind: domain.OpBuy}}
	_, err := s.RequestQuote(context.Background(), bad, "user-1")
	assert.Error(t, err)
}

func TestGetQuoteStatus_ResolvesThroughCache(t *testing.T) {
	cache := newMemCache()
	led := &fakeLedger{tx: domain.Transaction{ID: 42, Status: domain.StatusInProgress}}
	s := newTestQuoteService(t, &fakeSolicitor{}, led, cache, newMemRounds())

	require.NoError(t, cache.Put(context.Background(), domain.QuoteRecord{
		QuoteID:      "q-1",
		AssignmentID: 42,
		Quote:        domain.SignedQuote{ResolverID: "resolver-alpha"},
	}, time.Minute))

	status, err := s.GetQuoteStatus(context.Background(), "q-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), status.AssignmentID)
	assert.Equal(t, domain.StatusInProgress, status.Status)
	assert.Equal(t, "resolver-alpha", status.ResolverID)
}

func TestGetQuoteStatus_UnknownQuote(t *testing.T) {
	s := newTestQuoteService(t, &fakeSolicitor{}, &fakeLedger{}, newMemCache(), newMemRounds())

	_, err := s.GetQuoteStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
