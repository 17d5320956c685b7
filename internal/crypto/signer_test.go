package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

const testSeed = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func testQuote() domain.SignedQuote {
	return domain.SignedQuote{
		BundleID: 7,
		Operation: domain.Operation{
			Kind:         domain.OpBuy,
			StableAmount: 100_000_000,
		},
		ResolverID:   "resolver-alpha",
		ShareAmount:  980_000_000,
		StableAmount: 100_000_000,
		AssetAmounts: []domain.AssetAmount{
			{AssetID: "asset-1", Amount: 40},
			{AssetID: "asset-2", Amount: 60},
		},
		Fee:        500_000,
		Nonce:      1756700000000000123,
		ValidUntil: 1756700030000000000,
	}
}

func TestNewSigner_RejectsBadSeeds(t *testing.T) {
	tests := []struct {
		name string
		seed string
	}{
		{"empty", ""},
		{"not hex", "zzzz"},
		{"too short", "abcd"},
		{"too long", testSeed + "00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSigner(tt.seed)
			assert.Error(t, err)
		})
	}
}

func TestNewSigner_AcceptsHexPrefix(t *testing.T) {
	a, err := NewSigner(testSeed)
	require.NoError(t, err)
	b, err := NewSigner("0x" + testSeed)
	require.NoError(t, err)
	assert.Equal(t, a.PublicKeyHex(), b.PublicKeyHex())
}

func TestCanonicalMessage_FixedFieldOrder(t *testing.T) {
	msg := string(CanonicalMessage(testQuote()))

	expected := strings.Join([]string{
		"7",
		"buy:100000000:0",
		"resolver-alpha",
		"980000000",
		"100000000",
		"asset-1:40,asset-2:60",
		"500000",
		"1756700030000000000",
		"1756700000000000123",
	}, "|")
	assert.Equal(t, expected, msg)
}

func TestCanonicalMessage_Deterministic(t *testing.T) {
	q := testQuote()
	first := CanonicalMessage(q)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CanonicalMessage(q))
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	signer, err := NewSigner(testSeed)
	require.NoError(t, err)

	q := testQuote()
	sig := signer.Sign(q)
	require.Len(t, sig, 64)

	ok, err := Verify(signer.PublicKeyHex(), q, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_RejectsTamperedTerms(t *testing.T) {
	signer, err := NewSigner(testSeed)
	require.NoError(t, err)

	q := testQuote()
	sig := signer.Sign(q)

	tampered := q
	tampered.StableAmount++
	ok, err := Verify(signer.PublicKeyHex(), tampered, sig)
	require.NoError(t, err)
	assert.False(t, ok, "signature must not cover mutated terms")

	tampered = q
	tampered.Nonce++
	ok, err = Verify(signer.PublicKeyHex(), tampered, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_RejectsWrongKeyAndBadSig(t *testing.T) {
	signer, err := NewSigner(testSeed)
	require.NoError(t, err)
	other, err := NewSigner("0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)

	q := testQuote()
	sig := signer.Sign(q)

	ok, err := Verify(other.PublicKeyHex(), q, sig)
	require.NoError(t, err)
	assert.False(t, ok)

	// Malformed signature length is a clean false, not an error.
	ok, err = Verify(signer.PublicKeyHex(), q, []byte("short"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Verify("nothex", q, sig)
	assert.Error(t, err)
}
