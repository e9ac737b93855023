// Package scheduler triggers cycles from a cron expression in daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/models"
)

// CycleRunner runs one cycle.
type CycleRunner interface {
	Run(ctx context.Context) *models.CycleResult
}

// Service runs the cycle on its schedule. A tick that arrives while a cycle is still
// running is skipped, so cycles never overlap.
type Service struct {
	schedule string
	location *time.Location
	runner   CycleRunner
	cron     *cron.Cron
	logger   arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	running    bool
	lastRun    *time.Time
	lastStatus models.CycleStatus
}

// NewService creates a scheduler for the given schedule and IANA timezone.
func NewService(config common.ScheduleConfig, runner CycleRunner, logger arbor.ILogger) (*Service, error) {
	if err := common.ValidateSchedule(config.Cron); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	loc := time.UTC
	if config.Timezone != "" {
		l, err := time.LoadLocation(config.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule timezone %q: %w", config.Timezone, err)
		}
		loc = l
	}

	cronLogger := &cronLogAdapter{logger: logger}
	s := &Service{
		schedule: config.Cron,
		location: loc,
		runner:   runner,
		logger:   logger,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}

	if _, err := s.cron.AddFunc(config.Cron, s.runScheduledCycle); err != nil {
		return nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	return s, nil
}

// Start begins firing on the schedule. Cycles run with a context derived from ctx.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Str("timezone", s.location.String()).
		Str("next_run", s.nextRunLocked().Format(time.RFC3339)).
		Msg("Scheduler started")
	return nil
}

// Stop halts the schedule, cancels a running cycle and waits for it to return.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	stopped := s.cron.Stop()
	cancel()
	<-stopped.Done()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled fire time, zero when stopped.
func (s *Service) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.nextRunLocked()
}

// LastRun returns when the last cycle started and how it ended.
func (s *Service) LastRun() (*time.Time, models.CycleStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastStatus
}

func (s *Service) nextRunLocked() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Service) runScheduledCycle() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	started := time.Now()
	s.logger.Info().Str("schedule", s.schedule).Msg("Scheduled cycle starting")

	result := s.runner.Run(ctx)

	s.mu.Lock()
	s.lastRun = &started
	s.lastStatus = result.Status
	s.mu.Unlock()

	s.logger.Info().
		Str("cycle_id", result.CycleID).
		Str("status", string(result.Status)).
		Dur("duration", time.Since(started)).
		Msg("Scheduled cycle completed")
}

// cronLogAdapter routes cron's own logging through arbor.
type cronLogAdapter struct {
	logger arbor.ILogger
}

func (a *cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Str("cron", fmt.Sprint(keysAndValues...)).Msg(msg)
}

func (a *cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error().Err(err).Str("cron", fmt.Sprint(keysAndValues...)).Msg(msg)
}
