package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/telhawk-systems/scalperguard/common/logging"
	"github.com/telhawk-systems/scalperguard/common/middleware"
	"github.com/telhawk-systems/scalperguard/scoring/internal/metrics"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
	"github.com/telhawk-systems/scalperguard/scoring/internal/publisher"
	"github.com/telhawk-systems/scalperguard/scoring/internal/translog"
)

// Triggers label scoring runs in metrics and logs.
const (
	TriggerHTTP      = "http"
	TriggerScheduler = "scheduler"
)

// Processor runs the scoring pipeline over a snapshot.
type Processor interface {
	Process(events []models.TransferEvent, now *time.Time) (*models.ScoreReport, error)
}

// Pinger is implemented by sources that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ScoreOptions struct {
	// Now overrides the reference time; nil means the latest event.
	Now     *time.Time
	Trigger string
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Service struct {
	source    translog.Source
	backend   string
	pipeline  Processor
	publisher publisher.Publisher
	logger    *logging.Logger
	checks    map[string]ReadinessCheck
}

func NewService(source translog.Source, backend string, pipeline Processor, pub publisher.Publisher, logger *logging.Logger) *Service {
	if pub == nil {
		pub = publisher.Noop{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		source:    source,
		backend:   backend,
		pipeline:  pipeline,
		publisher: pub,
		logger:    logger,
		checks:    make(map[string]ReadinessCheck),
	}
}

// AddReadinessCheck registers an extra dependency for Ready.
func (s *Service) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checks[name] = check
}

// Score takes a fresh snapshot and scores it. Publishing failures are logged
// and reported but do not fail the call.
func (s *Service) Score(ctx context.Context, opts ScoreOptions) (*models.ScoreReport, error) {
	if opts.Trigger == "" {
		opts.Trigger = TriggerHTTP
	}
	if middleware.GetRequestID(ctx) == "" {
		runID, _ := uuid.NewV7()
		ctx = middleware.WithRequestID(ctx, "run-"+runID.String())
	}
	log := s.logger.WithContext(ctx)
	start := time.Now()

	events, err := s.source.Snapshot(ctx)
	if err != nil {
		metrics.SnapshotErrors.WithLabelValues(s.backend).Inc()
		metrics.ScoreRunsTotal.WithLabelValues(opts.Trigger, "error").Inc()
		s.capture(ctx, err)
		return nil, fmt.Errorf("snapshot transfer log: %w", err)
	}

	report, err := s.pipeline.Process(events, opts.Now)
	if err != nil {
		metrics.ScoreRunsTotal.WithLabelValues(opts.Trigger, "error").Inc()
		s.capture(ctx, err)
		return nil, fmt.Errorf("score snapshot: %w", err)
	}

	elapsed := time.Since(start)
	metrics.ScoreDuration.Observe(elapsed.Seconds())
	metrics.ScoreRunsTotal.WithLabelValues(opts.Trigger, "ok").Inc()
	metrics.SnapshotEvents.Set(float64(len(events)))
	metrics.WalletsScored.Set(float64(len(report.Wallets)))
	for decision, n := range report.CountByDecision() {
		metrics.DecisionsTotal.WithLabelValues(string(decision)).Add(float64(n))
	}

	log.Info("scoring run complete",
		slog.String("trigger", opts.Trigger),
		logging.Count(len(report.Wallets)),
		logging.Duration(elapsed.Milliseconds()),
	)
	for _, w := range report.Flagged() {
		log.Warn("wallet flagged",
			logging.Wallet(w.Wallet),
			logging.Decision(string(w.Decision)),
			logging.Risk(w.Risk),
		)
	}

	if err := s.publisher.PublishDecisions(ctx, report); err != nil {
		log.Error("failed to publish decisions", logging.Error(err))
		s.capture(ctx, err)
	}

	return report, nil
}

// Ready reports whether the transfer log and every registered dependency
// are reachable.
func (s *Service) Ready(ctx context.Context) error {
	if p, ok := s.source.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("transfer log: %w", err)
		}
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (s *Service) capture(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("request_id", middleware.GetRequestID(ctx))
		scope.SetTag("backend", s.backend)
		hub.CaptureException(err)
	})
}
