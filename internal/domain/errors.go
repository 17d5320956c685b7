package domain

import "errors"

// Sentinel errors shared across packages. The quote-submission errors mirror
// the ledger's rejection codes one to one; retrying a submission that failed
// with any of them would fail identically, so callers surface them verbatim.
var (
	ErrNotFound          = errors.New("not found")
	ErrNoLiquidity       = errors.New("no quote available from any resolver")
	ErrQuoteExpired      = errors.New("quote expired")
	ErrDuplicateNonce    = errors.New("nonce already used")
	ErrInvalidSignature  = errors.New("invalid coordinator signature")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrDispatchFailed    = errors.New("resolver execution failed")
	ErrSettlementFailed  = errors.New("settlement failed")
	ErrSettlementTimeout = errors.New("settlement timed out on ledger")
	ErrWatchTimeout      = errors.New("settlement watch budget exhausted")
	ErrUnauthorized      = errors.New("unauthorized")
)
