package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/telhawk-systems/scalperguard/common/logging"
	"github.com/telhawk-systems/scalperguard/common/messaging"
	"github.com/telhawk-systems/scalperguard/common/middleware"
	natsclient "github.com/telhawk-systems/scalperguard/common/messaging/nats"
	"github.com/telhawk-systems/scalperguard/scoring/internal/anomaly"
	"github.com/telhawk-systems/scalperguard/scoring/internal/config"
	"github.com/telhawk-systems/scalperguard/scoring/internal/handlers"
	"github.com/telhawk-systems/scalperguard/scoring/internal/pipeline"
	"github.com/telhawk-systems/scalperguard/scoring/internal/publisher"
	"github.com/telhawk-systems/scalperguard/scoring/internal/ratelimit"
	"github.com/telhawk-systems/scalperguard/scoring/internal/risk"
	"github.com/telhawk-systems/scalperguard/scoring/internal/rules"
	"github.com/telhawk-systems/scalperguard/scoring/internal/scheduler"
	"github.com/telhawk-systems/scalperguard/scoring/internal/server"
	"github.com/telhawk-systems/scalperguard/scoring/internal/service"
	"github.com/telhawk-systems/scalperguard/scoring/internal/translog"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	envFile := flag.String("env", "", "path to .env file")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("Failed to load env file: %v", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
		With(logging.Service("scoring"))
	logging.SetDefault(logger)

	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			SampleRate:       cfg.Sentry.SampleRate,
			TracesSampleRate: 0,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pg *translog.PostgresSource
	if strings.EqualFold(cfg.TransferLog.Backend, translog.BackendPostgres) {
		pg, err = openPostgres(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("Failed to open transfer log database: %v", err)
		}
		defer pg.Close()
	}

	source, err := translog.NewSource(cfg.TransferLog, pg)
	if err != nil {
		log.Fatalf("Failed to configure transfer log: %v", err)
	}
	logger.Info("transfer log configured",
		logging.Source(cfg.TransferLog.Backend),
		slog.String("path", cfg.TransferLog.Path),
	)

	pipe := pipeline.New(
		pipeline.WithWindow(cfg.Model.Window),
		pipeline.WithAnomalyScorer(anomaly.Scorer{
			Trees:         cfg.Model.Trees,
			Contamination: cfg.Model.Contamination,
			Seed:          cfg.Model.Seed,
			MaxSamples:    cfg.Model.MaxSamples,
		}),
		pipeline.WithRuleScorer(rules.NewEngine(cfg.Rules)),
		pipeline.WithEnsembler(risk.NewEnsembler(cfg.Risk)),
	)

	pub, brokers, err := buildPublisher(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to configure publisher: %v", err)
	}
	defer pub.Close()

	var limiter ratelimit.RateLimiter = ratelimit.NoOpRateLimiter{}
	if cfg.RateLimit.Enabled {
		rl, err := ratelimit.NewRedisRateLimiter(ctx, cfg.Redis.URL, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			log.Fatalf("Failed to initialize rate limiter: %v", err)
		}
		limiter = rl
		logger.Info("rate limiting enabled",
			slog.Int("requests", cfg.RateLimit.Requests),
			slog.String("window", cfg.RateLimit.Window.String()),
		)
	}
	defer limiter.Close()

	svc := service.NewService(source, cfg.TransferLog.Backend, pipe, pub, logger)
	for name, client := range brokers {
		svc.AddReadinessCheck(name, brokerCheck(client))
	}
	handler := handlers.NewScoringHandler(svc, limiter, logger)

	cors := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		cors.AllowedOrigins = cfg.Server.CORSOrigins
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler, cors, logger.Logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("scoring service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(svc, scheduler.Config{Interval: cfg.Scheduler.Interval}, logger)
		if err := sched.Start(gctx); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return sched.Stop()
		})
	}

	if err := g.Wait(); err != nil {
		sentry.CaptureException(err)
		logger.Error("scoring service exited with error", logging.Error(err))
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
	logger.Info("scoring service stopped")
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*translog.PostgresSource, error) {
	connString := cfg.Database.Postgres.ConnString()

	logger.Info("connecting to PostgreSQL",
		slog.String("host", cfg.Database.Postgres.Host),
		slog.Int("port", cfg.Database.Postgres.Port),
		slog.String("database", cfg.Database.Postgres.Database),
	)

	if cfg.Database.RunMigrations {
		logger.Info("running database migrations")
		m, err := migrate.New(cfg.Database.Migrations, connString)
		if err != nil {
			return nil, fmt.Errorf("initialize migrations: %w", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if version, dirty, err := m.Version(); err == nil {
			logger.Info("database migration complete",
				slog.Uint64("version", uint64(version)),
				slog.Bool("dirty", dirty),
			)
		}
		m.Close()
	}

	return translog.NewPostgresSource(ctx, connString)
}

// buildPublisher also returns the messaging clients it opened, keyed by
// backend, for readiness checks.
func buildPublisher(cfg *config.Config, logger *logging.Logger) (publisher.Publisher, map[string]messaging.Client, error) {
	var pubs publisher.Multi
	brokers := make(map[string]messaging.Client)
	for _, backend := range cfg.Publisher.Backends {
		switch strings.ToLower(backend) {
		case "nats":
			client, err := natsclient.NewClient(natsclient.Config{
				URL:           cfg.NATS.URL,
				Name:          cfg.NATS.Name,
				MaxReconnects: cfg.NATS.MaxReconnects,
				ReconnectWait: cfg.NATS.ReconnectWait,
				Timeout:       cfg.NATS.Timeout,
			})
			if err != nil {
				pubs.Close()
				return nil, nil, err
			}
			brokers["nats"] = client
			pubs = append(pubs, publisher.NewNATSPublisher(client))
			logger.Info("publishing decisions to NATS", slog.String("url", cfg.NATS.URL))
		case "kafka":
			kp, err := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ClientID)
			if err != nil {
				pubs.Close()
				return nil, nil, err
			}
			pubs = append(pubs, kp)
			logger.Info("publishing decisions to Kafka", slog.String("topic", cfg.Kafka.Topic))
		}
	}
	if len(pubs) == 0 {
		return publisher.Noop{}, brokers, nil
	}
	return pubs, brokers, nil
}

func brokerCheck(client messaging.Client) service.ReadinessCheck {
	return func(ctx context.Context) error {
		if status := messaging.CheckClientHealth(ctx, client); status.Error != "" {
			return errors.New(status.Error)
		}
		return nil
	}
}
