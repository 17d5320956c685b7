package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// apiSecretHeader authenticates the coordinator against resolver agents.
const apiSecretHeader = "X-API-Secret"

// Client speaks the resolver-agent HTTP boundary: POST /quote for pricing
// and POST /execute for assignment dispatch. Per-request deadlines come from
// the caller's context; the client timeout is only an upper bound.
type Client struct {
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a resolver agent client. apiSecret is the shared secret
// every registered agent expects in the X-API-Secret header.
func NewClient(apiSecret string) *Client {
	return &Client{
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// quoteRequest is the pricing request body sent to an agent.
type quoteRequest struct {
	BundleID  uint64           `json:"bundle_id"`
	Operation domain.Operation `json:"operation"`
	User      string           `json:"user"`
}

// quoteResponse is the agent's bid payload.
type quoteResponse struct {
	ShareAmount  uint64               `json:"share_amount"`
	StableAmount uint64               `json:"stable_amount"`
	AssetAmounts []domain.AssetAmount `json:"asset_amounts"`
	Fee          uint64               `json:"fee"`
}

// Quote requests a price from a single agent. The returned bid has been
// validated against the operation; a malformed payload is an error so the
// solicitor can exclude the agent.
func (c *Client) Quote(ctx context.Context, agent domain.ResolverInfo, intent domain.TradeIntent, user string) (domain.ResolverBid, error) {
	body := quoteRequest{
		BundleID:  intent.BundleID,
		Operation: intent.Operation,
		User:      user,
	}

	var resp quoteResponse
	if err := c.post(ctx, agent.URL+"/quote", body, &resp); err != nil {
		return domain.ResolverBid{}, fmt.Errorf("resolver: quote from %s: %w", agent.Name, err)
	}

	bid := domain.ResolverBid{
		ResolverID:   agent.ID,
		ShareAmount:  resp.ShareAmount,
		StableAmount: resp.StableAmount,
		AssetAmounts: resp.AssetAmounts,
		Fee:          resp.Fee,
	}
	if err := bid.Validate(intent.Operation); err != nil {
		return domain.ResolverBid{}, fmt.Errorf("resolver: malformed bid from %s: %w", agent.Name, err)
	}
	return bid, nil
}

// executeRequest is the dispatch directive body.
type executeRequest struct {
	AssignmentID uint64 `json:"assignment_id"`
}

// Execute sends the single execution directive for an assignment to the
// winning agent. Fire-and-forget: fund movement happens ledger-side and is
// observed through the settlement watcher, not through this response.
func (c *Client) Execute(ctx context.Context, agent domain.ResolverInfo, assignmentID uint64) error {
	if err := c.post(ctx, agent.URL+"/execute", executeRequest{AssignmentID: assignmentID}, nil); err != nil {
		return fmt.Errorf("resolver: execute on %s: %w", agent.Name, err)
	}
	return nil
}

// post sends a JSON request and decodes the JSON response into out when out
// is non-nil. Non-2xx statuses are errors carrying a truncated body.
func (c *Client) post(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiSecret != "" {
		req.Header.Set(apiSecretHeader, c.apiSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
