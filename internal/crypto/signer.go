// Package crypto provides the coordinator's Ed25519 quote signer and the
// key-management helpers used to load the signing seed at process start.
package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// Signer holds the coordinator's long-lived Ed25519 keypair. It is
// constructed once at startup and is safe for concurrent use: signing does
// not mutate key state.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner creates a Signer from a hex-encoded 32-byte Ed25519 seed.
func NewSigner(seedHex string) (*Signer, error) {
	seedHex = strings.TrimSpace(strings.TrimPrefix(seedHex, "0x"))
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: signing seed is not valid hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: signing seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return &Signer{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// PublicKeyHex returns the hex-encoded verifying key. This is the key the
// ledger must be configured with to accept the coordinator's quotes.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.pub)
}

// Sign produces a 64-byte Ed25519 signature over the quote's canonical
// message. The Signature field on the input is ignored.
func (s *Signer) Sign(q domain.SignedQuote) []byte {
	return ed25519.Sign(s.priv, CanonicalMessage(q))
}

// Verify checks sig against the quote's canonical message using the
// hex-encoded public key. Verifiers must use the identical canonicalization
// as Sign, so this is the only verification path in the codebase.
func Verify(publicKeyHex string, q domain.SignedQuote, sig []byte) (bool, error) {
	pub, err := hex.DecodeString(strings.TrimPrefix(publicKeyHex, "0x"))
	if err != nil {
		return false, fmt.Errorf("crypto: public key is not valid hex: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("crypto: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	if len(sig) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(ed25519.PublicKey(pub), CanonicalMessage(q), sig), nil
}

// CanonicalMessage serializes the quote terms into the fixed field order the
// signature covers: bundle, operation descriptor, resolver, shares, stable,
// assets, fee, expiry, nonce, joined with '|'. The same terms always produce
// the same bytes; the ledger rebuilds this string when verifying.
func CanonicalMessage(q domain.SignedQuote) []byte {
	assets := make([]string, 0, len(q.AssetAmounts))
	for _, a := range q.AssetAmounts {
		assets = append(assets, a.AssetID+":"+strconv.FormatUint(a.Amount, 10))
	}

	parts := []string{
		strconv.FormatUint(q.BundleID, 10),
		q.Operation.Descriptor(),
		q.ResolverID,
		strconv.FormatUint(q.ShareAmount, 10),
		strconv.FormatUint(q.StableAmount, 10),
		strings.Join(assets, ","),
		strconv.FormatUint(q.Fee, 10),
		strconv.FormatInt(q.ValidUntil, 10),
		strconv.FormatUint(q.Nonce, 10),
	}
	return []byte(strings.Join(parts, "|"))
}
