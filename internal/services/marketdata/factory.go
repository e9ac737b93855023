package marketdata

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/eodhd"
	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/yahoo"
)

// NewProvider builds the configured market data provider. When kv is non-nil the
// provider is wrapped in a CachedProvider.
func NewProvider(config *common.Config, kv interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.MarketDataProvider, error) {
	var provider interfaces.MarketDataProvider

	switch config.Market.Provider {
	case "", "yahoo":
		provider = yahoo.NewClient(
			yahoo.WithLogger(logger),
			yahoo.WithRateLimit(config.Market.RateLimit),
		)
	case "eodhd":
		if config.EODHD.APIKey == "" {
			return nil, fmt.Errorf("eodhd provider selected but no API key is configured")
		}
		provider = eodhd.NewClient(config.EODHD.APIKey,
			eodhd.WithBaseURL(config.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Market.RateLimit),
		)
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", config.Market.Provider)
	}

	if kv != nil {
		ttl := common.ParseDurationOr(config.Storage.Cache.TTL, DefaultCacheTTL)
		logger.Debug().
			Str("provider", provider.Name()).
			Dur("ttl", ttl).
			Msg("Market data cache enabled")
		return NewCachedProvider(provider, kv, logger).WithCacheTTL(ttl), nil
	}

	return provider, nil
}

// defaultRequestTimeout applies when the configured timeout cannot be parsed.
const defaultRequestTimeout = 15 * time.Second

// RequestTimeout returns the per-lookup timeout from config.
func RequestTimeout(config *common.Config) time.Duration {
	return common.ParseDurationOr(config.Market.RequestTimeout, defaultRequestTimeout)
}
