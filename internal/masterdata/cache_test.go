package masterdata

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	Repository
	calls atomic.Int64
}

func (r *countingRepo) GetItem(ctx context.Context, code string) (Item, error) {
	r.calls.Add(1)
	if code == "missing" {
		return Item{}, ErrNotFound
	}
	return Item{Code: code, MinOrderQty: 5, IsStockItem: true}, nil
}

func TestCachedRepositoryServesFromCache(t *testing.T) {
	repo := &countingRepo{}
	cached := NewCachedRepository(repo, time.Minute)
	ctx := context.Background()

	first, err := cached.GetItem(ctx, "WIDGET")
	require.NoError(t, err)
	require.Equal(t, 5.0, first.MinOrderQty)

	_, err = cached.GetItem(ctx, "WIDGET")
	require.NoError(t, err)
	require.Equal(t, int64(1), repo.calls.Load())
}

func TestCachedRepositoryDoesNotCacheErrors(t *testing.T) {
	repo := &countingRepo{}
	cached := NewCachedRepository(repo, time.Minute)
	ctx := context.Background()

	_, err := cached.GetItem(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = cached.GetItem(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, int64(2), repo.calls.Load())
}

func TestCachedRepositoryCollapsesConcurrentFetches(t *testing.T) {
	repo := &countingRepo{}
	cached := NewCachedRepository(repo, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.GetItem(ctx, "BOLT")
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, repo.calls.Load(), int64(8))
	require.GreaterOrEqual(t, repo.calls.Load(), int64(1))
}
