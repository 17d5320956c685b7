package domain

// TransactionStatus is the ledger-owned settlement state. The coordinator
// observes it but never mutates it.
type TransactionStatus string

const (
	StatusPending            TransactionStatus = "pending"
	StatusWaitingForResolver TransactionStatus = "waiting_for_resolver"
	StatusFundsLocked        TransactionStatus = "funds_locked"
	StatusInProgress         TransactionStatus = "in_progress"
	StatusAssetsTransferred  TransactionStatus = "assets_transferred"
	StatusCompleted          TransactionStatus = "completed"
	StatusFailed             TransactionStatus = "failed"
	StatusTimedOut           TransactionStatus = "timed_out"
)

// Terminal reports whether the status is final. A transaction in a terminal
// state is immutable on the ledger side.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Transaction is the ledger's settlement record, created when a signed quote
// is accepted and funds are locked. Timestamps are Unix nanoseconds.
type Transaction struct {
	ID           uint64            `json:"id"`
	User         string            `json:"user"`
	ResolverID   string            `json:"resolver_id"`
	BundleID     uint64            `json:"bundle_id"`
	Operation    Operation         `json:"operation"`
	Status       TransactionStatus `json:"status"`
	ShareAmount  uint64            `json:"share_amount"`
	StableAmount uint64            `json:"stable_amount"`
	CreatedAt    int64             `json:"created_at"`
	UpdatedAt    int64             `json:"updated_at"`
	CompletedAt  *int64            `json:"completed_at,omitempty"`
	TimeoutAt    int64             `json:"timeout_at"`
}

// Assignment is the ledger's binding of one accepted quote to one in-flight
// settlement. The assignment id doubles as the transaction id.
type Assignment struct {
	ID           uint64        `json:"id"`
	ResolverID   string        `json:"resolver_id"`
	ShareAmount  uint64        `json:"share_amount"`
	StableAmount uint64        `json:"stable_amount"`
	AssetAmounts []AssetAmount `json:"asset_amounts"`
	Fee          uint64        `json:"fee"`
	ValidUntil   int64         `json:"valid_until"`
	AssignedAt   int64         `json:"assigned_at"`
}

// FundKind discriminates which asset class a lock holds.
type FundKind string

const (
	FundStableToken FundKind = "stable_token"
	FundNavShares   FundKind = "nav_shares"
)

// FundType identifies a lockable fund. BundleID is set only for nav_shares.
type FundType struct {
	Kind     FundKind `json:"kind"`
	BundleID uint64   `json:"bundle_id,omitempty"`
}

// LockedFunds is a ledger-held escrow entry for one transaction. Released by
// successful settlement or by expiry-based recovery.
type LockedFunds struct {
	TransactionID uint64   `json:"transaction_id"`
	FundType      FundType `json:"fund_type"`
	Amount        uint64   `json:"amount"`
	LockedAt      int64    `json:"locked_at"`
	ExpiresAt     int64    `json:"expires_at"`
}

// UnlockedFunds reports one released lock from the recovery path.
type UnlockedFunds struct {
	FundType FundType `json:"fund_type"`
	Amount   uint64   `json:"amount"`
}
