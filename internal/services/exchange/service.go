// Package exchange reports the session state and latest move of every tracked index.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
)

const (
	// DefaultLookbackDays spans a long weekend plus a holiday.
	DefaultLookbackDays = 7

	// DefaultConcurrency bounds parallel history lookups.
	DefaultConcurrency = 4

	// DefaultRequestTimeout bounds each history lookup.
	DefaultRequestTimeout = 15 * time.Second
)

// Service builds MarketSessions for the configured indices.
type Service struct {
	provider       interfaces.MarketDataProvider
	exchanges      []*common.ExchangeHours
	logger         arbor.ILogger
	lookbackDays   int
	concurrency    int
	requestTimeout time.Duration
	now            func() time.Time
}

// NewService creates a session service. Invalid index definitions are rejected here
// so a cycle never meets them.
func NewService(provider interfaces.MarketDataProvider, indices []common.ExchangeConfig, logger arbor.ILogger) (*Service, error) {
	exchanges := make([]*common.ExchangeHours, 0, len(indices))
	for _, idx := range indices {
		hours, err := common.NewExchangeHours(idx)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", idx.Name, err)
		}
		exchanges = append(exchanges, hours)
	}

	return &Service{
		provider:       provider,
		exchanges:      exchanges,
		logger:         logger,
		lookbackDays:   DefaultLookbackDays,
		concurrency:    DefaultConcurrency,
		requestTimeout: DefaultRequestTimeout,
		now:            time.Now,
	}, nil
}

// WithLookbackDays sets how many calendar days of history are requested.
func (s *Service) WithLookbackDays(days int) *Service {
	if days > 1 {
		s.lookbackDays = days
	}
	return s
}

// WithConcurrency sets the number of parallel lookups.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// WithRequestTimeout sets the per-lookup timeout.
func (s *Service) WithRequestTimeout(timeout time.Duration) *Service {
	if timeout > 0 {
		s.requestTimeout = timeout
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Sessions looks up every index in parallel. Indices without history are omitted from
// the sessions and reported in the outcomes; the result keeps configuration order.
func (s *Service) Sessions(ctx context.Context) ([]models.MarketSession, []models.Outcome) {
	now := s.now().UTC()

	sessions := make([]*models.MarketSession, len(s.exchanges))
	outcomes := make([]models.Outcome, len(s.exchanges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, hours := range s.exchanges {
		g.Go(func() error {
			session, err := s.session(gctx, hours, now)
			switch {
			case err != nil:
				s.logger.Warn().
					Err(err).
					Str("exchange", hours.Name).
					Str("symbol", hours.Symbol).
					Msg("Market session unavailable, omitting exchange")
				outcomes[i] = models.NewOutcome(models.CollaboratorMarketData, hours.Symbol, models.OutcomeFailed, err)
			default:
				sessions[i] = session
				outcomes[i] = models.NewOutcome(models.CollaboratorMarketData, hours.Symbol, models.OutcomeSuccess, nil)
			}
			// Lookups never cancel their siblings
			return nil
		})
	}
	_ = g.Wait()

	result := make([]models.MarketSession, 0, len(sessions))
	for _, session := range sessions {
		if session != nil {
			result = append(result, *session)
		}
	}

	s.logger.Debug().
		Int("tracked", len(s.exchanges)).
		Int("available", len(result)).
		Msg("Market sessions resolved")

	return result, outcomes
}

func (s *Service) session(ctx context.Context, hours *common.ExchangeHours, now time.Time) (*models.MarketSession, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	bars, err := s.provider.History(lookupCtx, hours.Symbol, s.lookbackDays)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", hours.Symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("history for %s: no price bars returned", hours.Symbol)
	}

	state := common.CheckSession(hours, bars, now)
	latest := bars[len(bars)-1]

	var change float64
	if len(bars) >= 2 {
		change, _ = common.PercentChange(bars[len(bars)-2].Close, latest.Close)
	}

	s.logger.Debug().
		Str("exchange", hours.Name).
		Bool("trading_day", state.IsTradingDay).
		Bool("open", state.IsOpen).
		Str("reason", state.Reason).
		Msg("Session checked")

	return &models.MarketSession{
		ExchangeName:  hours.Name,
		Symbol:        hours.Symbol,
		LastPrice:     latest.Close,
		ChangePercent: change,
		IsTradingDay:  state.IsTradingDay,
		IsOpen:        state.IsOpen,
		AsOf:          latest.Date,
	}, nil
}
