package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prism/internal/common"
	"github.com/ternarybob/prism/internal/models"
)

func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

type countingRunner struct {
	calls   atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	block   time.Duration
}

func (r *countingRunner) Run(ctx context.Context) *models.CycleResult {
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)
	r.calls.Add(1)

	select {
	case <-time.After(r.block):
	case <-ctx.Done():
	}
	return &models.CycleResult{CycleID: "c", Status: models.CycleSuccess}
}

func TestNewService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  common.ScheduleConfig
		wantErr bool
	}{
		{"valid", common.ScheduleConfig{Cron: "30 7 * * 1-5", Timezone: "Asia/Seoul"}, false},
		{"utc default", common.ScheduleConfig{Cron: "0 8 * * *"}, false},
		{"bad expression", common.ScheduleConfig{Cron: "not a cron"}, true},
		{"too frequent", common.ScheduleConfig{Cron: "*/5 * * * *"}, true},
		{"bad timezone", common.ScheduleConfig{Cron: "0 8 * * *", Timezone: "Mars/Base"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.config, &countingRunner{}, createTestLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_StartStop(t *testing.T) {
	s, err := NewService(common.ScheduleConfig{Cron: "0 8 * * *", Timezone: "Asia/Seoul"}, &countingRunner{}, createTestLogger())
	require.NoError(t, err)

	assert.True(t, s.NextRun().IsZero())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(context.Background()), "second start is rejected")

	next := s.NextRun()
	require.False(t, next.IsZero())
	assert.Equal(t, 8, next.In(s.location).Hour())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(), "stop is idempotent")
}

func TestService_SkipsOverlappingTicks(t *testing.T) {
	runner := &countingRunner{block: 200 * time.Millisecond}
	s, err := NewService(common.ScheduleConfig{Cron: "0 8 * * *"}, runner, createTestLogger())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// Fire the wrapped job directly, as cron would on overlapping ticks
	job := s.cron.Entries()[0].WrappedJob
	done := make(chan struct{})
	go func() {
		job.Run()
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	job.Run()
	<-done

	assert.Equal(t, int32(1), runner.calls.Load())
	assert.False(t, runner.overlap.Load())

	last, status := s.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, models.CycleSuccess, status)
}
