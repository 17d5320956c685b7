// Package ledger is the typed gateway to the authoritative settlement
// ledger. Submitting a signed quote is the atomic boundary: the ledger
// validates the signature, nonce, and expiry, and only then locks the user's
// funds and opens a transaction.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// Rejection codes returned by the ledger on quote submission. Each maps to a
// domain sentinel so callers can branch with errors.Is without parsing
// message text.
const (
	codeQuoteExpired        = "quote_expired"
	codeDuplicateNonce      = "duplicate_nonce"
	codeInvalidSignature    = "invalid_signature"
	codeInsufficientBalance = "insufficient_balance"
	codeNotFound            = "not_found"
)

// ClientConfig holds connection parameters for the ledger gateway.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the HTTP implementation of the ledger boundary.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a ledger Client. Timeout defaults to 30s.
func New(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("ledger: base URL must not be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// errorEnvelope is the ledger's error response body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// submitResponse is the success body of a quote submission.
type submitResponse struct {
	AssignmentID uint64 `json:"assignment_id"`
}

// SubmitQuote submits a signed quote for atomic validate-and-lock. On
// success the ledger has locked the user's funds and returns the assignment
// id (which doubles as the transaction id). Validation rejections come back
// as typed errors and must not be retried: the same signed quote will fail
// identically.
func (c *Client) SubmitQuote(ctx context.Context, q domain.SignedQuote) (uint64, error) {
	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/v1/quotes", q, &resp); err != nil {
		return 0, err
	}
	return resp.AssignmentID, nil
}

// GetAssignment fetches the ledger's record binding an accepted quote to its
// in-flight settlement.
func (c *Client) GetAssignment(ctx context.Context, id uint64) (domain.Assignment, error) {
	var a domain.Assignment
	err := c.do(ctx, http.MethodGet, "/v1/assignments/"+strconv.FormatUint(id, 10), nil, &a)
	return a, err
}

// GetTransaction fetches the current settlement record, including status,
// timeout_at, and completed_at.
func (c *Client) GetTransaction(ctx context.Context, id uint64) (domain.Transaction, error) {
	var tx domain.Transaction
	err := c.do(ctx, http.MethodGet, "/v1/transactions/"+strconv.FormatUint(id, 10), nil, &tx)
	return tx, err
}

// unlockResponse is the body of a fund-unlock call.
type unlockResponse struct {
	Unlocked []domain.UnlockedFunds `json:"unlocked"`
}

// UnlockAllFunds releases every lock held for a transaction. Recovery path:
// the happy path releases funds through settlement, not through this call.
func (c *Client) UnlockAllFunds(ctx context.Context, transactionID uint64) ([]domain.UnlockedFunds, error) {
	var resp unlockResponse
	path := "/v1/transactions/" + strconv.FormatUint(transactionID, 10) + "/unlock"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Unlocked, nil
}

// maintenanceResponse reports how many records a maintenance op touched.
type maintenanceResponse struct {
	Count uint32 `json:"count"`
}

// RecoverTimeouts triggers the ledger's timeout detection: transactions past
// timeout_at are marked TimedOut and their funds unlocked.
func (c *Client) RecoverTimeouts(ctx context.Context) (uint32, error) {
	var resp maintenanceResponse
	if err := c.do(ctx, http.MethodPost, "/v1/maintenance/recover-timeouts", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// CleanupExpired removes expired quote requests and stale nonce records on
// the ledger.
func (c *Client) CleanupExpired(ctx context.Context) (uint32, error) {
	var resp maintenanceResponse
	if err := c.do(ctx, http.MethodPost, "/v1/maintenance/cleanup-expired", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// do performs one JSON round-trip against the ledger. Error bodies are
// decoded and mapped onto domain sentinels by rejection code.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("ledger: marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("ledger: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ledger: decode response: %w", err)
	}
	return nil
}

// decodeError maps a non-2xx ledger response to a typed error. Unknown
// codes surface as plain wrapped errors carrying the ledger's message.
func (c *Client) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code == "" {
		return fmt.Errorf("ledger: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var sentinel error
	switch env.Error.Code {
	case codeQuoteExpired:
		sentinel = domain.ErrQuoteExpired
	case codeDuplicateNonce:
		sentinel = domain.ErrDuplicateNonce
	case codeInvalidSignature:
		sentinel = domain.ErrInvalidSignature
	case codeInsufficientBalance:
		sentinel = domain.ErrInsufficientFunds
	case codeNotFound:
		sentinel = domain.ErrNotFound
	default:
		return fmt.Errorf("ledger: %s: %s", env.Error.Code, env.Error.Message)
	}

	if env.Error.Message != "" {
		return fmt.Errorf("ledger: %s: %w", env.Error.Message, sentinel)
	}
	return sentinel
}
