package client

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// BatchCache is a read-through cache of batch aggregates keyed by batch id.
// It never predicts counter deltas: review actions and stream completion
// invalidate, and the next read re-fetches the server's authoritative
// counters.
type BatchCache struct {
	client *Client
	cache  *cache.Cache
}

func NewBatchCache(client *Client, ttl time.Duration) *BatchCache {
	return &BatchCache{
		client: client,
		cache:  cache.New(ttl, ttl*2),
	}
}

// Get returns the batch from cache, fetching on a miss. A batch in status
// failed carries its server error message verbatim in ErrorMessage.
func (b *BatchCache) Get(ctx context.Context, batchID string) (*Batch, error) {
	if cached, found := b.cache.Get(batchID); found {
		return cached.(*Batch), nil
	}

	batch, err := b.client.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	b.cache.Set(batchID, batch, cache.DefaultExpiration)
	return batch, nil
}

// Invalidate forces the next Get for this batch to bypass the cache.
func (b *BatchCache) Invalidate(batchID string) {
	b.cache.Delete(batchID)
}
