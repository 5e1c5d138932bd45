package readhistory

import (
	"context"
	"sync"
	"testing"
	"time"

	"unitoku/internal/cache"
	"unitoku/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, capacity int) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, capacity), mr
}

func TestStore_RecordAndList(t *testing.T) {
	store, mr := setupStore(t, 3)
	ctx := context.Background()
	clock := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	for i := uint(1); i <= 4; i++ {
		clock = clock.Add(time.Minute)
		require.NoError(t, store.Record(ctx, 7, entry(i)))
	}

	got, err := store.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint(4), got[0].PostID)
	assert.Equal(t, clock, got[0].ReadAt)
	assert.True(t, mr.Exists(cache.ReadHistoryKey(7)))

	require.NoError(t, store.Record(ctx, 7, entry(2)))
	got, err = store.List(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint(2), got[0].PostID)
	assert.Len(t, got, 3)
}

func TestStore_IsolatedPerUser(t *testing.T) {
	store, _ := setupStore(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, 1, entry(100)))
	got, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_DeleteAndClear(t *testing.T) {
	store, mr := setupStore(t, 10)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, 1, entry(1)))
	require.NoError(t, store.Record(ctx, 1, entry(2)))

	require.NoError(t, store.Delete(ctx, 1, 1))
	got, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint(2), got[0].PostID)

	require.NoError(t, store.Clear(ctx, 1))
	assert.False(t, mr.Exists(cache.ReadHistoryKey(1)))
}

func TestStore_CorruptBlobIsReplaced(t *testing.T) {
	store, mr := setupStore(t, 10)
	require.NoError(t, mr.Set(cache.ReadHistoryKey(3), "not json"))

	got, err := store.List(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.Record(context.Background(), 3, entry(5)))
	got, err = store.List(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_ConcurrentRecordsKeepEveryEntry(t *testing.T) {
	store, _ := setupStore(t, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := uint(1); i <= 20; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			var err error
			// conflicts are retried inside Record; retry here only if all attempts lost
			for try := 0; try < 10; try++ {
				if err = store.Record(ctx, 9, entry(id)); err != ErrConflict {
					break
				}
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.List(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestStore_WithoutRedisIsNoop(t *testing.T) {
	store := NewStore(nil, 10)
	ctx := context.Background()

	assert.False(t, store.Enabled())
	assert.NoError(t, store.Record(ctx, 1, models.ReadHistoryEntry{PostID: 1}))
	got, err := store.List(ctx, 1)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, store.Clear(ctx, 1))
}
