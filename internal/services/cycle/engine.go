// Package cycle runs one end-to-end recommendation cycle.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/prism/internal/interfaces"
	"github.com/ternarybob/prism/internal/models"
	"github.com/ternarybob/prism/internal/services/notify"
	"github.com/ternarybob/prism/internal/services/report"
)

// DefaultTimeout bounds a whole cycle.
const DefaultTimeout = 10 * time.Minute

// SessionSource reports today's session for every tracked index.
type SessionSource interface {
	Sessions(ctx context.Context) ([]models.MarketSession, []models.Outcome)
}

// PerformanceSource verifies how previous picks moved.
type PerformanceSource interface {
	Verify(ctx context.Context, instruments []models.Instrument) ([]models.PerformanceRecord, []models.Outcome)
}

// NewsSource gathers the latest headlines.
type NewsSource interface {
	Headlines(ctx context.Context) ([]models.NewsItem, []models.Outcome)
}

// ReportMerger builds the dashboard from the gathered inputs and raw model text.
type ReportMerger interface {
	Merge(cycleID string, now time.Time, sessions []models.MarketSession, records []models.PerformanceRecord, raw string) (*models.DashboardState, error)
}

// Delivery sends the notification to every enabled channel.
type Delivery interface {
	Deliver(ctx context.Context, subject, message string) []models.Outcome
}

// Dependencies are the engine's collaborators. Delivery may be nil.
type Dependencies struct {
	State       interfaces.StateStorage
	History     interfaces.HistoryStorage
	Sessions    SessionSource
	Performance PerformanceSource
	News        NewsSource
	Model       interfaces.LanguageModelProvider
	Merger      ReportMerger
	Delivery    Delivery
}

// Engine runs cycles. It is not safe for concurrent Run calls; the scheduler serializes them.
type Engine struct {
	deps         Dependencies
	timeout      time.Duration
	location     *time.Location
	messageLimit int
	now          func() time.Time
	newID        func() string
	logger       arbor.ILogger
}

// NewEngine creates an engine.
func NewEngine(deps Dependencies, logger arbor.ILogger) (*Engine, error) {
	switch {
	case deps.State == nil, deps.History == nil:
		return nil, fmt.Errorf("state and history stores are required")
	case deps.Sessions == nil, deps.Performance == nil, deps.News == nil:
		return nil, fmt.Errorf("session, performance and news sources are required")
	case deps.Model == nil:
		return nil, fmt.Errorf("language model provider is required")
	case deps.Merger == nil:
		return nil, fmt.Errorf("report merger is required")
	}

	return &Engine{
		deps:         deps,
		timeout:      DefaultTimeout,
		location:     time.UTC,
		messageLimit: notify.DefaultMessageLimit,
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       logger,
	}, nil
}

// WithTimeout sets the whole-cycle deadline.
func (e *Engine) WithTimeout(timeout time.Duration) *Engine {
	if timeout > 0 {
		e.timeout = timeout
	}
	return e
}

// WithLocation sets the zone the prompt's date is rendered in.
func (e *Engine) WithLocation(loc *time.Location) *Engine {
	if loc != nil {
		e.location = loc
	}
	return e
}

// WithMessageLimit sets the notification length cap in runes.
func (e *Engine) WithMessageLimit(limit int) *Engine {
	if limit > 0 {
		e.messageLimit = limit
	}
	return e
}

// WithClock overrides the engine's time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run executes one cycle. It never panics and never returns a nil result.
func (e *Engine) Run(ctx context.Context) (result *models.CycleResult) {
	result = &models.CycleResult{
		CycleID:   e.newID(),
		Phase:     models.PhaseIdle,
		StartedAt: e.now(),
		Outcomes:  []models.Outcome{},
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("cycle_id", result.CycleID).
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("Cycle panicked")
			result.Err = fmt.Errorf("cycle panicked: %v", r)
		}
		e.finish(result)
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result.Err = e.run(ctx, result)
	return result
}

func (e *Engine) run(ctx context.Context, result *models.CycleResult) error {
	log := e.logger.WithCorrelationId(result.CycleID)

	previous := e.readPrevious(ctx, result)
	picks := []models.Instrument{}
	if previous != nil {
		picks = previous.Tickers
	}
	result.Phase = models.PhaseVerifying

	var (
		sessions    []models.MarketSession
		records     []models.PerformanceRecord
		news        []models.NewsItem
		sessionOut  []models.Outcome
		recordOut   []models.Outcome
		newsOut     []models.Outcome
		g, groupCtx = errgroup.WithContext(ctx)
	)
	g.Go(func() error {
		sessions, sessionOut = e.deps.Sessions.Sessions(groupCtx)
		return nil
	})
	g.Go(func() error {
		records, recordOut = e.deps.Performance.Verify(groupCtx, picks)
		return nil
	})
	g.Go(func() error {
		news, newsOut = e.deps.News.Headlines(groupCtx)
		return nil
	})
	_ = g.Wait()

	result.Outcomes = append(result.Outcomes, sessionOut...)
	result.Outcomes = append(result.Outcomes, recordOut...)
	result.Outcomes = append(result.Outcomes, newsOut...)

	log.Info().
		Int("sessions", len(sessions)).
		Int("performance_records", len(records)).
		Int("news_items", len(news)).
		Msg("Market inputs gathered")

	result.Phase = models.PhaseMerging
	now := e.now()

	prompt := report.BuildPrompt(report.PromptInput{
		Now:         now,
		Location:    e.location,
		Sessions:    sessions,
		Performance: records,
		News:        news,
	})

	raw, err := e.deps.Model.Generate(ctx, prompt)
	if err != nil {
		result.Record(models.CollaboratorLLM, "", models.OutcomeFailed, err)
		return fmt.Errorf("language model: %w", err)
	}
	result.Record(models.CollaboratorLLM, "", models.OutcomeSuccess, nil)

	state, err := e.deps.Merger.Merge(result.CycleID, now, sessions, records, raw)
	if err != nil {
		result.Record(models.CollaboratorLLM, "payload", models.OutcomeFailed, err)
		return fmt.Errorf("merge: %w", err)
	}

	if err := e.deps.State.Write(ctx, state); err != nil {
		result.Record(models.CollaboratorState, "", models.OutcomeFailed, err)
		return fmt.Errorf("write state: %w", err)
	}
	result.Record(models.CollaboratorState, "", models.OutcomeSuccess, nil)

	if err := e.deps.History.Append(ctx, models.NewHistoryEntry(state)); err != nil {
		result.Record(models.CollaboratorHistory, "", models.OutcomeFailed, err)
		e.rollbackState(ctx, result, previous)
		return fmt.Errorf("append history: %w", err)
	}
	result.Record(models.CollaboratorHistory, "", models.OutcomeSuccess, nil)

	result.Phase = models.PhasePersisted
	result.Dashboard = state

	log.Info().
		Int("tickers", len(state.Tickers)).
		Strs("predicted", state.PredictedDisplayNames()).
		Msg("Dashboard persisted")

	if e.deps.Delivery != nil {
		message := notify.FormatMessage(state, e.messageLimit)
		result.Outcomes = append(result.Outcomes, e.deps.Delivery.Deliver(ctx, notify.Subject(state), message)...)
	}

	return nil
}

// rollbackState puts the previous snapshot back after a failed history append, so the
// state and history stay in step. With no previous snapshot the new one is removed.
// If the rollback itself fails the new state remains and the phase says so.
func (e *Engine) rollbackState(ctx context.Context, result *models.CycleResult, previous *models.DashboardState) {
	var err error
	if previous != nil {
		err = e.deps.State.Write(ctx, previous)
	} else {
		err = e.deps.State.Clear(ctx)
	}

	if err != nil {
		e.logger.Error().Err(err).Str("cycle_id", result.CycleID).Msg("Failed to roll back dashboard state")
		result.Record(models.CollaboratorState, "rollback", models.OutcomeFailed, err)
		result.Phase = models.PhaseStateOnly
		return
	}
	result.Record(models.CollaboratorState, "rollback", models.OutcomeSuccess, nil)
}

// readPrevious returns the previous dashboard, or nil on the first run. Any read failure
// other than not-found is degraded and treated as a first run.
func (e *Engine) readPrevious(ctx context.Context, result *models.CycleResult) *models.DashboardState {
	state, err := e.deps.State.Read(ctx)
	switch {
	case err == nil:
		result.Record(models.CollaboratorState, "read", models.OutcomeSuccess, nil)
		return state
	case errors.Is(err, interfaces.ErrStateNotFound):
		e.logger.Info().Msg("No previous dashboard state, skipping performance verification")
		result.Record(models.CollaboratorState, "read", models.OutcomeSuccess, nil)
	default:
		e.logger.Warn().Err(err).Msg("Failed to read previous dashboard state")
		result.Record(models.CollaboratorState, "read", models.OutcomeDegraded, err)
	}
	return nil
}

func (e *Engine) finish(result *models.CycleResult) {
	result.FinishedAt = e.now()

	switch {
	case result.Err != nil:
		result.Status = models.CycleAborted
	case result.Degraded():
		result.Status = models.CycleDegraded
	default:
		result.Status = models.CycleSuccess
	}

	event := e.logger.Info()
	if result.Status == models.CycleAborted {
		event = e.logger.Error().Err(result.Err)
	} else if result.Status == models.CycleDegraded {
		event = e.logger.Warn()
	}
	event.
		Str("cycle_id", result.CycleID).
		Str("status", string(result.Status)).
		Str("phase", string(result.Phase)).
		Int("outcomes", len(result.Outcomes)).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Cycle finished")
}
