package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/scalperguard/common/logging"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
	"github.com/telhawk-systems/scalperguard/scoring/internal/service"
)

type fakeScorer struct {
	mu       sync.Mutex
	calls    int
	triggers []string
	err      error
}

func (f *fakeScorer) Score(_ context.Context, opts service.ScoreOptions) (*models.ScoreReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.triggers = append(f.triggers, opts.Trigger)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ScoreReport{Wallets: []models.WalletScore{{Wallet: "A"}, {Wallet: "B"}}}, nil
}

func (f *fakeScorer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(&bytes.Buffer{}, slog.LevelError, "json")
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(&fakeScorer{}, Config{Interval: 20 * time.Millisecond}, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())
	assert.Error(t, s.Start(context.Background()), "double start")

	require.NoError(t, s.Stop())
	assert.False(t, s.Running())
	assert.Error(t, s.Stop(), "double stop")
}

func TestSchedulerRunsPeriodically(t *testing.T) {
	scorer := &fakeScorer{}
	s := NewScheduler(scorer, Config{Interval: 10 * time.Millisecond}, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return scorer.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	stats := s.Stats()
	assert.GreaterOrEqual(t, stats.Runs, int64(3))
	assert.Zero(t, stats.Errors)
	assert.Equal(t, 2, stats.LastResult)
	assert.False(t, stats.LastRun.IsZero())

	scorer.mu.Lock()
	defer scorer.mu.Unlock()
	for _, trig := range scorer.triggers {
		assert.Equal(t, service.TriggerScheduler, trig)
	}
}

func TestSchedulerCountsErrors(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("snapshot failed")}
	s := NewScheduler(scorer, Config{Interval: 10 * time.Millisecond}, quietLogger())

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return s.Stats().Errors >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Equal(t, s.Stats().Runs, s.Stats().Errors)
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	scorer := &fakeScorer{}
	s := NewScheduler(scorer, Config{Interval: 10 * time.Millisecond}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	time.Sleep(50 * time.Millisecond)
	calls := scorer.Calls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, scorer.Calls())
	require.NoError(t, s.Stop())
}

func TestNewSchedulerDefaultInterval(t *testing.T) {
	s := NewScheduler(&fakeScorer{}, Config{}, nil)
	assert.Equal(t, time.Minute, s.interval)
}
