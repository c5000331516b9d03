package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-extractor/internal/config"
	"news-extractor/internal/observability"
	"news-extractor/internal/scraper"
)

func schedulerConfig(mode string, intervalS int, cronExpr string) *config.Config {
	cfg := &config.Config{}
	cfg.Scheduler.Mode = mode
	cfg.Scheduler.IntervalS = intervalS
	cfg.Scheduler.CronExpr = cronExpr
	return cfg
}

func TestNewScheduler(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{"default oneshot", schedulerConfig("", 0, ""), false},
		{"interval", schedulerConfig("interval", 60, ""), false},
		{"interval without period", schedulerConfig("interval", 0, ""), true},
		{"cron", schedulerConfig("cron", 0, "*/15 * * * *"), false},
		{"cron descriptor", schedulerConfig("cron", 0, "@hourly"), false},
		{"bad cron", schedulerConfig("cron", 0, "every day"), true},
		{"unknown mode", schedulerConfig("weekly", 0, ""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(tt.cfg, observability.NopLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSchedulerOneshot(t *testing.T) {
	s, err := NewScheduler(schedulerConfig("oneshot", 0, ""), observability.NopLogger())
	require.NoError(t, err)

	var runs int32
	boom := errors.New("boom")
	err = s.Run(context.Background(), func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), runs)
}

func TestSchedulerIntervalRunsUntilCancelled(t *testing.T) {
	s, err := NewScheduler(schedulerConfig("interval", 1, ""), observability.NopLogger())
	require.NoError(t, err)
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	err = s.Run(ctx, func(context.Context) error {
		if atomic.AddInt32(&runs, 1) == 3 {
			cancel()
		}
		return errors.New("transient")
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&runs))
}

func TestSchedulerIntervalStopsOnConfigError(t *testing.T) {
	s, err := NewScheduler(schedulerConfig("interval", 1, ""), observability.NopLogger())
	require.NoError(t, err)
	s.interval = 10 * time.Millisecond

	err = s.Run(context.Background(), func(context.Context) error {
		return &scraper.ConfigError{Reason: "fields must not be empty"}
	})
	assert.True(t, IsConfigError(err))
}

func TestSchedulerCron(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a cron tick")
	}
	s, err := NewScheduler(schedulerConfig("cron", 0, "@every 1s"), observability.NopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var runs int32
	err = s.Run(ctx, func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		cancel()
		return nil
	})
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(1))
}

func TestGracefulShutdownTimeout(t *testing.T) {
	ctx, cancel := GracefulShutdown(observability.NopLogger(), 20*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled")
	}
}

func TestGracefulShutdownWithoutTimeout(t *testing.T) {
	ctx, cancel := GracefulShutdown(observability.NopLogger(), 0)
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
