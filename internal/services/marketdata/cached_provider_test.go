package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
)

type countingProvider struct {
	calls int
	bars  []models.PriceBar
	err   error
}

func (p *countingProvider) Name() string { return "fake" }

func (p *countingProvider) History(ctx context.Context, symbol string, lookbackDays int) ([]models.PriceBar, error) {
	p.calls++
	return p.bars, p.err
}

// memoryKV is an in-memory KeyValueStorage ignoring TTLs.
type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", interfaces.ErrKeyNotFound
	}
	return v, nil
}

func (m *memoryKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryKV) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	return nil, nil
}

func (m *memoryKV) PurgeExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func TestCachedProvider_HitAfterMiss(t *testing.T) {
	inner := &countingProvider{bars: []models.PriceBar{
		{Date: time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), Close: 70000, Volume: 10},
		{Date: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC), Close: 71400, Volume: 12},
	}}
	kv := newMemoryKV()
	provider := NewCachedProvider(inner, kv, arbor.NewLogger())
	ctx := context.Background()

	first, err := provider.History(ctx, "005930.KS", 7)
	require.NoError(t, err)
	second, err := provider.History(ctx, "005930.KS", 7)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	require.Len(t, second, 2)
	assert.Equal(t, first[1].Close, second[1].Close)
	assert.True(t, first[1].Date.Equal(second[1].Date))
	assert.Equal(t, "fake", provider.Name())
}

func TestCachedProvider_KeyChangesWithDay(t *testing.T) {
	inner := &countingProvider{bars: []models.PriceBar{}}
	provider := NewCachedProvider(inner, newMemoryKV(), arbor.NewLogger())

	now := time.Date(2025, 1, 8, 23, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := provider.History(ctx, "^GSPC", 7)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = provider.History(ctx, "^GSPC", 7)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_ErrorsAreNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("upstream down")}
	kv := newMemoryKV()
	provider := NewCachedProvider(inner, kv, arbor.NewLogger())

	_, err := provider.History(context.Background(), "^GSPC", 7)
	require.Error(t, err)
	assert.Empty(t, kv.values)
}

func TestNewProvider(t *testing.T) {
	logger := arbor.NewLogger()

	config := common.NewDefaultConfig()
	provider, err := NewProvider(config, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", provider.Name())

	config.Market.Provider = "eodhd"
	_, err = NewProvider(config, nil, logger)
	assert.Error(t, err, "eodhd requires an API key")

	config.EODHD.APIKey = "key"
	provider, err = NewProvider(config, newMemoryKV(), logger)
	require.NoError(t, err)
	assert.Equal(t, "eodhd", provider.Name())
	_, cached := provider.(*CachedProvider)
	assert.True(t, cached)

	config.Market.Provider = "bloomberg"
	_, err = NewProvider(config, nil, logger)
	assert.Error(t, err)
}
