package domain

import (
	"fmt"
	"time"
)

// AssetAmount is one constituent leg of a bundle trade: the amount of a
// single underlying asset the resolver will move.
type AssetAmount struct {
	AssetID string `json:"asset_id"`
	Amount  uint64 `json:"amount"`
}

// ResolverBid is a single agent's answer to a pricing request. Bids are
// ephemeral: they exist only between solicitation and selection.
type ResolverBid struct {
	ResolverID   string        `json:"resolver_id"`
	ShareAmount  uint64        `json:"share_amount"`
	StableAmount uint64        `json:"stable_amount"`
	AssetAmounts []AssetAmount `json:"asset_amounts"`
	Fee          uint64        `json:"fee"`
}

// Validate rejects bids whose amounts are inconsistent with the operation
// they price. Malformed bids are dropped at the solicitation boundary so the
// selector only ever sees well-formed input.
func (b ResolverBid) Validate(op Operation) error {
	if b.ResolverID == "" {
		return fmt.Errorf("domain: bid missing resolver_id")
	}
	if op.BuySide() && b.ShareAmount == 0 {
		return fmt.Errorf("domain: buy-side bid from %s has zero share_amount", b.ResolverID)
	}
	if op.Kind == OpSell && b.StableAmount == 0 {
		return fmt.Errorf("domain: sell bid from %s has zero stable_amount", b.ResolverID)
	}
	return nil
}

// SignedQuote binds the winning bid's terms under the coordinator signature.
// The signature covers every other field in a fixed canonical order; any
// mutation after signing invalidates it. ValidUntil is Unix nanoseconds to
// match the ledger's clock units.
type SignedQuote struct {
	BundleID     uint64        `json:"bundle_id"`
	Operation    Operation     `json:"operation"`
	ResolverID   string        `json:"resolver_id"`
	ShareAmount  uint64        `json:"share_amount"`
	StableAmount uint64        `json:"stable_amount"`
	AssetAmounts []AssetAmount `json:"asset_amounts"`
	Fee          uint64        `json:"fee"`
	Nonce        uint64        `json:"nonce"`
	ValidUntil   int64         `json:"valid_until"`
	Signature    []byte        `json:"signature"`
}

// Expired reports whether the quote is unusable at the given instant. A
// quote is dead at or after ValidUntil, never only after.
func (q SignedQuote) Expired(now time.Time) bool {
	return now.UnixNano() >= q.ValidUntil
}

// QuoteRecord is the cached auction artifact keyed by quote id. It survives
// past selection so status lookups can resolve the in-flight settlement.
type QuoteRecord struct {
	QuoteID      string      `json:"quote_id"`
	RoundID      string      `json:"round_id"`
	Quote        SignedQuote `json:"quote"`
	AssignmentID uint64      `json:"assignment_id"`
}

// QuoteResult is what the orchestrator returns to the caller after the
// ledger accepts a signed quote and locks the user's funds.
type QuoteResult struct {
	QuoteID      string `json:"quote_id"`
	AssignmentID uint64 `json:"assignment_id"`
	ResolverID   string `json:"resolver_id"`
	ResolverName string `json:"resolver_name"`
	ShareAmount  uint64 `json:"share_amount"`
	StableAmount uint64 `json:"stable_amount"`
	Fee          uint64 `json:"fee"`
	ValidUntil   int64  `json:"valid_until"`
}

// ExecutionResult is the outcome of dispatching an assignment and watching
// its settlement to a terminal state.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
