package domain

import (
	"context"
	"time"
)

// RoundStatus tracks an auction round through the coordinator's own audit
// trail. It is distinct from the ledger's TransactionStatus: a round exists
// even when no ledger call was ever made (no_liquidity).
type RoundStatus string

const (
	RoundNoLiquidity RoundStatus = "no_liquidity"
	RoundRejected    RoundStatus = "rejected"
	RoundAssigned    RoundStatus = "assigned"
	RoundDispatched  RoundStatus = "dispatched"
	RoundCompleted   RoundStatus = "completed"
	RoundFailed      RoundStatus = "failed"
	RoundTimedOut    RoundStatus = "timed_out"
)

// AuctionRound is the audit record for one solicit→select→sign→submit cycle.
type AuctionRound struct {
	ID           string      `json:"id"`
	QuoteID      string      `json:"quote_id,omitempty"`
	BundleID     uint64      `json:"bundle_id"`
	Operation    Operation   `json:"operation"`
	User         string      `json:"user"`
	BidCount     int         `json:"bid_count"`
	WinnerID     string      `json:"winner_id,omitempty"`
	AssignmentID uint64      `json:"assignment_id,omitempty"`
	Status       RoundStatus `json:"status"`
	Error        string      `json:"error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	SettledAt    *time.Time  `json:"settled_at,omitempty"`
}

// RoundStore persists auction rounds for audit and archival.
type RoundStore interface {
	Insert(ctx context.Context, round AuctionRound) error
	// UpdateStatus advances a round to a non-terminal status.
	UpdateStatus(ctx context.Context, assignmentID uint64, status RoundStatus) error
	// MarkSettled records the terminal outcome of the round owning the given
	// assignment. errMsg may be empty on success.
	MarkSettled(ctx context.Context, assignmentID uint64, status RoundStatus, errMsg string, settledAt time.Time) error
	Get(ctx context.Context, id string) (AuctionRound, error)
	// ListSettledBefore returns terminal rounds settled strictly before the
	// cutoff, oldest first, for archival.
	ListSettledBefore(ctx context.Context, before time.Time, limit int) ([]AuctionRound, error)
}

// QuoteCache stores signed-quote records keyed by quote id. Implementations
// must be safe for concurrent use; entries carry a TTL so a stale quote is
// never served as fresh.
type QuoteCache interface {
	Put(ctx context.Context, rec QuoteRecord, ttl time.Duration) error
	Get(ctx context.Context, quoteID string) (QuoteRecord, error)
}
