package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/telhawk-systems/scalperguard/common/logging"
	"github.com/telhawk-systems/scalperguard/scoring/internal/metrics"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
	"github.com/telhawk-systems/scalperguard/scoring/internal/service"
)

// Scorer runs one scoring pass.
type Scorer interface {
	Score(ctx context.Context, opts service.ScoreOptions) (*models.ScoreReport, error)
}

// Scheduler re-scores the transfer log on a fixed interval. Nothing carries
// over between runs.
type Scheduler struct {
	mu       sync.RWMutex
	scorer   Scorer
	interval time.Duration
	logger   *logging.Logger
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	stats Stats
}

// Stats tracks scheduler activity.
type Stats struct {
	Runs       int64
	Errors     int64
	LastRun    time.Time
	LastResult int
}

type Config struct {
	Interval time.Duration
}

func NewScheduler(scorer Scorer, cfg Config, logger *logging.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		scorer:   scorer,
		interval: cfg.Interval,
		logger:   logger,
	}
}

// Start launches the loop. The first run happens after one interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	s.logger.Info("scoring scheduler starting", "interval", s.interval.String())

	s.wg.Add(1)
	go s.run(ctx, stop)
	return nil
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not running")
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scoring scheduler stopped")
	return nil
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.scorer.Score(ctx, service.ScoreOptions{Trigger: service.TriggerScheduler})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Runs++
	s.stats.LastRun = time.Now()
	if err != nil {
		s.stats.Errors++
		s.logger.Error("scheduled scoring failed", logging.Error(err))
		return
	}
	s.stats.LastResult = len(report.Wallets)
	metrics.SchedulerLastRun.Set(float64(s.stats.LastRun.Unix()))
}

// Stats returns a copy of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
