package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

const quoteKeyPrefix = "quote:"

// QuoteCache stores signed-quote records in Redis keyed by quote id. TTLs
// come from the caller so the entry outlives the quote by exactly the
// settlement grace period and no longer.
type QuoteCache struct {
	client *Client
}

var _ domain.QuoteCache = (*QuoteCache)(nil)

// NewQuoteCache creates a QuoteCache over an established client.
func NewQuoteCache(client *Client) *QuoteCache {
	return &QuoteCache{client: client}
}

// Put stores the record under its quote id with the given TTL.
func (c *QuoteCache) Put(ctx context.Context, rec domain.QuoteRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal quote record: %w", err)
	}
	if err := c.client.rdb.Set(ctx, quoteKeyPrefix+rec.QuoteID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: store quote %s: %w", rec.QuoteID, err)
	}
	return nil
}

// Get fetches a record by quote id. Missing or expired entries return
// domain.ErrNotFound.
func (c *QuoteCache) Get(ctx context.Context, quoteID string) (domain.QuoteRecord, error) {
	payload, err := c.client.rdb.Get(ctx, quoteKeyPrefix+quoteID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.QuoteRecord{}, fmt.Errorf("redis: quote %s: %w", quoteID, domain.ErrNotFound)
		}
		return domain.QuoteRecord{}, fmt.Errorf("redis: fetch quote %s: %w", quoteID, err)
	}

	var rec domain.QuoteRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.QuoteRecord{}, fmt.Errorf("redis: decode quote %s: %w", quoteID, err)
	}
	return rec, nil
}
