package masterdata

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachedRepository wraps a Repository with a short-lived in-process cache for
// item lookups. Validation and submit touch the same items repeatedly within
// one request; singleflight collapses concurrent fetches of the same code.
type CachedRepository struct {
	Repository

	group singleflight.Group
	ttl   time.Duration

	mu    sync.RWMutex
	items map[string]cachedItem
}

type cachedItem struct {
	item    Item
	fetched time.Time
}

// NewCachedRepository constructs the caching wrapper.
func NewCachedRepository(repo Repository, ttl time.Duration) *CachedRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedRepository{
		Repository: repo,
		ttl:        ttl,
		items:      make(map[string]cachedItem),
	}
}

// GetItem returns a cached item when fresh, otherwise fetches through
// singleflight so concurrent callers share one repository round trip.
func (c *CachedRepository) GetItem(ctx context.Context, code string) (Item, error) {
	c.mu.RLock()
	cached, ok := c.items[code]
	c.mu.RUnlock()
	if ok && time.Since(cached.fetched) < c.ttl {
		return cached.item, nil
	}

	resultChan := c.group.DoChan(code, func() (interface{}, error) {
		item, err := c.Repository.GetItem(context.WithoutCancel(ctx), code)
		if err != nil {
			return Item{}, err
		}
		c.mu.Lock()
		c.items[code] = cachedItem{item: item, fetched: time.Now()}
		c.mu.Unlock()
		return item, nil
	})

	select {
	case <-ctx.Done():
		return Item{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Item{}, res.Err
		}
		return res.Val.(Item), nil
	}
}

// Invalidate drops an item from the cache.
func (c *CachedRepository) Invalidate(code string) {
	c.mu.Lock()
	delete(c.items, code)
	c.mu.Unlock()
}
