// Package marketdata selects the market data provider and layers the response cache over it.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
)

const (
	// DefaultCacheTTL is the default time-to-live for cached price history.
	DefaultCacheTTL = 30 * time.Minute

	// KeyPrefix is the prefix for price history keys in KV storage.
	KeyPrefix = "marketdata:"
)

var _ interfaces.MarketDataProvider = (*CachedProvider)(nil)

// CachedProvider serves price history from KV storage when a fresh copy exists.
type CachedProvider struct {
	next     interfaces.MarketDataProvider
	kv       interfaces.KeyValueStorage
	logger   arbor.ILogger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewCachedProvider wraps next with a cache.
func NewCachedProvider(next interfaces.MarketDataProvider, kv interfaces.KeyValueStorage, logger arbor.ILogger) *CachedProvider {
	return &CachedProvider{
		next:     next,
		kv:       kv,
		logger:   logger,
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
	}
}

// WithCacheTTL sets a custom cache TTL.
func (p *CachedProvider) WithCacheTTL(ttl time.Duration) *CachedProvider {
	if ttl > 0 {
		p.cacheTTL = ttl
	}
	return p
}

// Name reports the wrapped provider's name.
func (p *CachedProvider) Name() string {
	return p.next.Name()
}

// cacheKey includes the UTC date so a new day never reads yesterday's bars.
func (p *CachedProvider) cacheKey(symbol string, lookbackDays int) string {
	return fmt.Sprintf("%s%s:%s:%d:%s", KeyPrefix, p.next.Name(), symbol, lookbackDays, p.now().UTC().Format("2006-01-02"))
}

// History returns cached bars, falling back to the wrapped provider on a miss.
// Cache failures are logged and never fail the lookup.
func (p *CachedProvider) History(ctx context.Context, symbol string, lookbackDays int) ([]models.PriceBar, error) {
	key := p.cacheKey(symbol, lookbackDays)

	if cached, err := p.kv.Get(ctx, key); err == nil {
		var bars []models.PriceBar
		if err := json.Unmarshal([]byte(cached), &bars); err == nil {
			p.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Using cached price history")
			return bars, nil
		}
		p.logger.Warn().Str("key", key).Msg("Discarding undecodable cached price history")
	} else if !errors.Is(err, interfaces.ErrKeyNotFound) {
		p.logger.Warn().Err(err).Str("key", key).Msg("Price history cache read failed")
	}

	bars, err := p.next.History(ctx, symbol, lookbackDays)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(bars); err == nil {
		if err := p.kv.Set(ctx, key, string(data), p.cacheTTL); err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache price history")
		}
	}

	return bars, nil
}

// Purge removes expired cache entries.
func (p *CachedProvider) Purge(ctx context.Context) (int, error) {
	return p.kv.PurgeExpired(ctx)
}
