package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32
	currentVersion   = 1
)

// encryptedSeedJSON is the on-disk format for an encrypted signing seed.
type encryptedSeedJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeyConfig carries the information LoadSeed needs to resolve the Ed25519
// signing seed. Populate the fields from config/environment.
type KeyConfig struct {
	// RawSeed is the hex-encoded 32-byte seed. If non-empty it wins.
	RawSeed string

	// SeedPath is a file containing the hex-encoded seed, one line.
	SeedPath string

	// EncryptedSeedPath is a JSON file produced by EncryptSeed.
	EncryptedSeedPath string

	// KeyPassword decrypts the file at EncryptedSeedPath.
	KeyPassword string
}

// LoadSeed resolves the signing seed from the provided configuration.
//
// Resolution order:
//  1. RawSeed, if set.
//  2. SeedPath: read the file, trim whitespace.
//  3. EncryptedSeedPath: read and decrypt with KeyPassword.
//
// A missing or malformed seed is an error; the process must refuse to start
// rather than sign with a garbage key.
func LoadSeed(cfg KeyConfig) (string, error) {
	if cfg.RawSeed != "" {
		return validateSeedHex(cfg.RawSeed)
	}

	if cfg.SeedPath != "" {
		data, err := os.ReadFile(cfg.SeedPath)
		if err != nil {
			return "", fmt.Errorf("crypto: reading seed file: %w", err)
		}
		return validateSeedHex(string(data))
	}

	if cfg.EncryptedSeedPath != "" {
		data, err := os.ReadFile(cfg.EncryptedSeedPath)
		if err != nil {
			return "", fmt.Errorf("crypto: reading encrypted seed file: %w", err)
		}
		return DecryptSeed(data, cfg.KeyPassword)
	}

	return "", errors.New("crypto: no signing key source configured (set RawSeed, SeedPath, or EncryptedSeedPath)")
}

// EncryptSeed encrypts a hex-encoded seed with a password using
// PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM authenticated
// encryption, returning the JSON blob suitable for writing to disk.
func EncryptSeed(seedHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}

	seedHex, err := validateSeedHex(seedHex)
	if err != nil {
		return nil, err
	}
	seed, _ := hex.DecodeString(seedHex)

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, seed, nil)

	out := encryptedSeedJSON{
		Version:    currentVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecryptSeed decrypts a JSON blob produced by EncryptSeed, returning the
// hex-encoded seed.
func DecryptSeed(encryptedJSON []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: password must not be empty")
	}

	var stored encryptedSeedJSON
	if err := json.Unmarshal(encryptedJSON, &stored); err != nil {
		return "", fmt.Errorf("crypto: parsing encrypted seed JSON: %w", err)
	}
	if stored.Version != currentVersion {
		return "", fmt.Errorf("crypto: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return "", fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("crypto: creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}

	return hex.EncodeToString(plaintext), nil
}

// GenerateSeed returns a fresh random hex-encoded seed. Used by operator
// tooling, never at serve time.
func GenerateSeed() (string, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("crypto: generating seed: %w", err)
	}
	return hex.EncodeToString(seed), nil
}

// validateSeedHex normalises and validates a hex seed string.
func validateSeedHex(s string) (string, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("crypto: seed is not valid hex: %w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return "", fmt.Errorf("crypto: expected %d-byte seed, got %d bytes", ed25519.SeedSize, len(raw))
	}
	return s, nil
}
