package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

func buyOp(stable uint64) domain.Operation {
	return domain.Operation{Kind: domain.OpBuy, StableAmount: stable}
}

func sellOp(shares uint64) domain.Operation {
	return domain.Operation{Kind: domain.OpSell, ShareAmount: shares}
}

func TestSelectBest_BuyMaximizesShares(t *testing.T) {
	bids := []domain.ResolverBid{
		{ResolverID: "a", ShareAmount: 950_000_000, StableAmount: 100_000_000},
		{ResolverID: "b", ShareAmount: 980_000_000, StableAmount: 100_000_000},
		{ResolverID: "c", ShareAmount: 920_000_000, StableAmount: 100_000_000},
	}

	best, ok := SelectBest(bids, buyOp(100_000_000))
	require.True(t, ok)
	assert.Equal(t, "b", best.ResolverID)
	assert.Equal(t, uint64(980_000_000), best.ShareAmount)
}

func TestSelectBest_SellMaximizesStable(t *testing.T) {
	bids := []domain.ResolverBid{
		{ResolverID: "a", ShareAmount: 100_000_000, StableAmount: 98_000_000},
		{ResolverID: "b", ShareAmount: 100_000_000, StableAmount: 97_500_000},
	}

	best, ok := SelectBest(bids, sellOp(100_000_000))
	require.True(t, ok)
	assert.Equal(t, "a", best.ResolverID)
}

func TestSelectBest_InitialBuyUsesShares(t *testing.T) {
	op := domain.Operation{Kind: domain.OpInitialBuy, StableAmount: 50, ShareAmount: 50}
	bids := []domain.ResolverBid{
		{ResolverID: "a", ShareAmount: 10, StableAmount: 999},
		{ResolverID: "b", ShareAmount: 11, StableAmount: 1},
	}

	best, ok := SelectBest(bids, op)
	require.True(t, ok)
	assert.Equal(t, "b", best.ResolverID)
}

func TestSelectBest_TieKeepsFirstBid(t *testing.T) {
	bids := []domain.ResolverBid{
		{ResolverID: "first", ShareAmount: 500},
		{ResolverID: "second", ShareAmount: 500},
		{ResolverID: "third", ShareAmount: 500},
	}

	// Same input must always pick the same winner.
	for i := 0; i < 50; i++ {
		best, ok := SelectBest(bids, buyOp(100))
		require.True(t, ok)
		assert.Equal(t, "first", best.ResolverID)
	}
}

func TestSelectBest_SingleBidWins(t *testing.T) {
	bids := []domain.ResolverBid{{ResolverID: "only", ShareAmount: 1}}

	best, ok := SelectBest(bids, buyOp(100))
	require.True(t, ok)
	assert.Equal(t, "only", best.ResolverID)
}

func TestSelectBest_EmptyReturnsFalse(t *testing.T) {
	_, ok := SelectBest(nil, buyOp(100))
	assert.False(t, ok)

	_, ok = SelectBest([]domain.ResolverBid{}, sellOp(100))
	assert.False(t, ok)
}
