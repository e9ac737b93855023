package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
)

func setupTestKV(t *testing.T) *KVStorage {
	t.Helper()
	logger := arbor.NewLogger()

	db, err := NewBadgerDB(logger, &common.CacheConfig{Enabled: true, Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewKVStorage(db, logger)
}

func TestKVStorage_SetGet(t *testing.T) {
	kv := setupTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "Yahoo:^GSPC", "payload", 0))

	value, err := kv.Get(ctx, "yahoo:^gspc")
	require.NoError(t, err)
	assert.Equal(t, "payload", value)

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestKVStorage_TTL(t *testing.T) {
	kv := setupTestKV(t)
	ctx := context.Background()

	now := time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "short", "a", time.Minute))
	require.NoError(t, kv.Set(ctx, "long", "b", time.Hour))
	require.NoError(t, kv.Set(ctx, "forever", "c", 0))

	now = now.Add(2 * time.Minute)

	_, err := kv.Get(ctx, "short")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	value, err := kv.Get(ctx, "long")
	require.NoError(t, err)
	assert.Equal(t, "b", value)

	now = now.Add(2 * time.Hour)
	purged, err := kv.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged, "only the hour-long entry is left to purge")

	value, err = kv.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "c", value)
}

func TestKVStorage_ListByPrefixAndDelete(t *testing.T) {
	kv := setupTestKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "yahoo:a", "1", 0))
	require.NoError(t, kv.Set(ctx, "yahoo:b", "2", 0))
	require.NoError(t, kv.Set(ctx, "eodhd:a", "3", 0))

	pairs, err := kv.ListByPrefix(ctx, "yahoo:")
	require.NoError(t, err)
	assert.Len(t, pairs, 2)

	require.NoError(t, kv.Delete(ctx, "yahoo:a"))
	assert.ErrorIs(t, kv.Delete(ctx, "yahoo:a"), interfaces.ErrKeyNotFound)

	pairs, err = kv.ListByPrefix(ctx, "yahoo:")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "yahoo:b", pairs[0].Key)
}
