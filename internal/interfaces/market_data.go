package interfaces

import (
	"context"

	"github.com/ternarybob/prism/internal/models"
)

// MarketDataProvider returns daily price history for a provider symbol.
type MarketDataProvider interface {
	// History returns bars covering roughly the last lookbackDays calendar days,
	// oldest first. An unrecognised symbol may yield an empty slice rather than an error.
	History(ctx context.Context, symbol string, lookbackDays int) ([]models.PriceBar, error)

	// Name identifies the provider in logs and cache keys
	Name() string
}
