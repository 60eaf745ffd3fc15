// Package cache stores recommendation batches for a fixed TTL per kind.
//
// Expiry is lazy: an entry past its deadline reads as absent. Entries are
// never mutated in place; a new Put replaces the payload.
package cache

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mohammad-safakhou/azadi/internal/issues"
	"github.com/mohammad-safakhou/azadi/models"
)

// Store is a TTL byte store shared by all kinds. Implementations must be safe
// for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Cache is the per-kind view over a Store.
type Cache struct {
	kind  models.Kind
	ttl   time.Duration
	store Store
}

// New returns a Cache for kind. ttl must be positive.
func New(kind models.Kind, ttl time.Duration, store Store) *Cache {
	return &Cache{kind: kind, ttl: ttl, store: store}
}

// Kind returns the recommendation kind this cache serves.
func (c *Cache) Kind() models.Kind { return c.kind }

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) storeKey(key string) string {
	return string(c.kind) + ":" + key
}

// Get returns the batch stored under key. A decode failure reads as a miss.
func (c *Cache) Get(ctx context.Context, key string) (models.Batch, bool, error) {
	if key == issues.EmptyKey || key == "" {
		return models.Batch{}, false, nil
	}
	raw, ok, err := c.store.Get(ctx, c.storeKey(key))
	if err != nil || !ok {
		return models.Batch{}, false, err
	}
	var batch models.Batch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return models.Batch{}, false, nil
	}
	return batch, true, nil
}

// GetRaw returns the stored payload bytes unchanged.
func (c *Cache) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	if key == issues.EmptyKey || key == "" {
		return nil, false, nil
	}
	return c.store.Get(ctx, c.storeKey(key))
}

// Put stores batch under key for the kind's TTL. Empty batches and the empty
// key are refused.
func (c *Cache) Put(ctx context.Context, key string, batch models.Batch) error {
	if key == issues.EmptyKey || key == "" {
		return fmt.Errorf("cache: refusing to store empty issue set")
	}
	if batch.Len() == 0 {
		return fmt.Errorf("cache: refusing to store empty %s batch", c.kind)
	}
	raw, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("cache: encode %s batch: %w", c.kind, err)
	}
	return c.store.Put(ctx, c.storeKey(key), raw, c.ttl)
}
