// Package domain defines the core types shared across the coordinator:
// trade intents, resolver bids, signed quotes, ledger transactions, and the
// store/cache interfaces implemented by the infrastructure packages.
package domain

import (
	"fmt"
)

// OperationKind discriminates the trade operation union.
type OperationKind string

const (
	// OpBuy exchanges stable tokens for bundle shares at the resolver's price.
	OpBuy OperationKind = "buy"
	// OpSell exchanges bundle shares back into stable tokens.
	OpSell OperationKind = "sell"
	// OpInitialBuy seeds a new bundle: the caller fixes both legs up front.
	OpInitialBuy OperationKind = "initial_buy"
)

// Operation is a tagged union describing one side of a bundle trade.
// Amounts are integer base units: stable tokens carry 6 decimals, bundle
// shares carry 8 decimals.
type Operation struct {
	Kind         OperationKind `json:"kind"`
	StableAmount uint64        `json:"stable_amount,omitempty"`
	ShareAmount  uint64        `json:"share_amount,omitempty"`
}

// Validate checks that the operation carries the amounts its kind requires.
func (o Operation) Validate() error {
	switch o.Kind {
	case OpBuy:
		if o.StableAmount == 0 {
			return fmt.Errorf("domain: buy operation requires stable_amount > 0")
		}
	case OpSell:
		if o.ShareAmount == 0 {
			return fmt.Errorf("domain: sell operation requires share_amount > 0")
		}
	case OpInitialBuy:
		if o.StableAmount == 0 || o.ShareAmount == 0 {
			return fmt.Errorf("domain: initial_buy operation requires both stable_amount and share_amount > 0")
		}
	default:
		return fmt.Errorf("domain: unknown operation kind %q", o.Kind)
	}
	return nil
}

// BuySide reports whether the operation acquires bundle shares.
func (o Operation) BuySide() bool {
	return o.Kind == OpBuy || o.Kind == OpInitialBuy
}

// Descriptor renders the operation as a deterministic string for the signing
// message. Field order and format must never change: the ledger reconstructs
// the identical string when verifying the coordinator signature.
func (o Operation) Descriptor() string {
	return fmt.Sprintf("%s:%d:%d", o.Kind, o.StableAmount, o.ShareAmount)
}

// TradeIntent is one user's request to trade against a bundle. It is
// immutable for the lifetime of a single auction round.
type TradeIntent struct {
	BundleID  uint64    `json:"bundle_id"`
	Operation Operation `json:"operation"`
}

// Validate checks the intent for structural validity.
func (t TradeIntent) Validate() error {
	if t.BundleID == 0 {
		return fmt.Errorf("domain: bundle_id must be set")
	}
	return t.Operation.Validate()
}
