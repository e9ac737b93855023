// Package performance verifies how the previous cycle's recommendations moved.
package performance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
)

const (
	// DefaultLookbackDays gives at least two trading bars across weekends and holidays.
	DefaultLookbackDays = 7

	// DefaultConcurrency bounds parallel lookups.
	DefaultConcurrency = 4

	// DefaultRequestTimeout bounds each lookup.
	DefaultRequestTimeout = 15 * time.Second
)

// SymbolResolver maps a display name or bare code to a provider symbol.
type SymbolResolver interface {
	Resolve(displayName string) string
}

// Verifier computes PerformanceRecords for a set of instruments.
// It has no side effects: identical inputs and price responses give identical output.
type Verifier struct {
	provider       interfaces.MarketDataProvider
	resolver       SymbolResolver
	logger         arbor.ILogger
	lookbackDays   int
	concurrency    int
	requestTimeout time.Duration
}

// NewVerifier creates a verifier.
func NewVerifier(provider interfaces.MarketDataProvider, resolver SymbolResolver, logger arbor.ILogger) *Verifier {
	return &Verifier{
		provider:       provider,
		resolver:       resolver,
		logger:         logger,
		lookbackDays:   DefaultLookbackDays,
		concurrency:    DefaultConcurrency,
		requestTimeout: DefaultRequestTimeout,
	}
}

// WithLookbackDays sets how many calendar days of history are requested.
func (v *Verifier) WithLookbackDays(days int) *Verifier {
	if days > 1 {
		v.lookbackDays = days
	}
	return v
}

// WithConcurrency sets the number of parallel lookups.
func (v *Verifier) WithConcurrency(n int) *Verifier {
	if n > 0 {
		v.concurrency = n
	}
	return v
}

// WithRequestTimeout sets the per-lookup timeout.
func (v *Verifier) WithRequestTimeout(timeout time.Duration) *Verifier {
	if timeout > 0 {
		v.requestTimeout = timeout
	}
	return v
}

// SymbolFor picks the symbol used to price an instrument. The display name is consulted
// first so a curated mapping wins over whatever symbol the model emitted; otherwise the
// recorded symbol is normalized so bare home-market codes get their suffix.
func (v *Verifier) SymbolFor(instrument models.Instrument) string {
	name := strings.TrimSpace(instrument.DisplayName)
	symbol := strings.TrimSpace(instrument.Symbol)

	if name != "" {
		if resolved := v.resolver.Resolve(name); resolved != name {
			return resolved
		}
	}
	if symbol != "" {
		return v.resolver.Resolve(symbol)
	}
	return v.resolver.Resolve(name)
}

// Verify prices every instrument. Instruments whose lookup fails are skipped and reported
// as failed outcomes; output order matches input order.
func (v *Verifier) Verify(ctx context.Context, instruments []models.Instrument) ([]models.PerformanceRecord, []models.Outcome) {
	records := make([]*models.PerformanceRecord, len(instruments))
	outcomes := make([]models.Outcome, len(instruments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for i, instrument := range instruments {
		g.Go(func() error {
			symbol := v.SymbolFor(instrument)
			record, err := v.verifyOne(gctx, instrument, symbol)
			if err != nil {
				v.logger.Warn().
					Err(err).
					Str("display_name", instrument.DisplayName).
					Str("symbol", symbol).
					Msg("Performance lookup failed, skipping instrument")
				outcomes[i] = models.NewOutcome(models.CollaboratorMarketData, symbol, models.OutcomeFailed, err)
				return nil
			}
			records[i] = record
			outcomes[i] = models.NewOutcome(models.CollaboratorMarketData, symbol, models.OutcomeSuccess, nil)
			return nil
		})
	}
	_ = g.Wait()

	result := make([]models.PerformanceRecord, 0, len(records))
	for _, record := range records {
		if record != nil {
			result = append(result, *record)
		}
	}

	v.logger.Debug().
		Int("instruments", len(instruments)).
		Int("verified", len(result)).
		Msg("Previous recommendations verified")

	return result, outcomes
}

func (v *Verifier) verifyOne(ctx context.Context, instrument models.Instrument, symbol string) (*models.PerformanceRecord, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, v.requestTimeout)
	defer cancel()

	bars, err := v.provider.History(lookupCtx, symbol, v.lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", symbol, err)
	}

	change, status := Evaluate(bars)
	return &models.PerformanceRecord{
		DisplayName:   instrument.DisplayName,
		Symbol:        symbol,
		ChangePercent: change,
		Status:        status,
	}, nil
}
