// Package auction implements deterministic winner selection over resolver
// bids.
package auction

import (
	"github.com/xfusionlabs/coordinator/internal/domain"
)

// SelectBest picks exactly one winning bid for the operation, or reports
// none when the list is empty.
//
// Buy and initial-buy maximize ShareAmount (most units for the spend); sell
// maximizes StableAmount (most stable token for the units). Ties keep the
// first-encountered bid: the comparison is strict, so for equal metrics the
// earlier bid in input order retains the win on every run.
func SelectBest(bids []domain.ResolverBid, op domain.Operation) (domain.ResolverBid, bool) {
	if len(bids) == 0 {
		return domain.ResolverBid{}, false
	}

	metric := func(b domain.ResolverBid) uint64 {
		if op.BuySide() {
			return b.ShareAmount
		}
		return b.StableAmount
	}

	best := bids[0]
	for _, b := range bids[1:] {
		if metric(b) > metric(best) {
			best = b
		}
	}
	return best, true
}
