package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/scalperguard/common/database"
	"github.com/telhawk-systems/scalperguard/scoring/internal/risk"
	"github.com/telhawk-systems/scalperguard/scoring/internal/rules"
	"github.com/telhawk-systems/scalperguard/scoring/internal/translog"
)

type Config struct {
	Server      ServerConfig    `mapstructure:"server"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	TransferLog translog.Config `mapstructure:"transfer_log"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Model       ModelConfig     `mapstructure:"model"`
	Rules       rules.Config    `mapstructure:"rules"`
	Risk        risk.Config     `mapstructure:"risk"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	NATS        NATSConfig      `mapstructure:"nats"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Publisher   PublisherConfig `mapstructure:"publisher"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Sentry      SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Postgres      database.PostgresConfig `mapstructure:"postgres"`
	Migrations    string                  `mapstructure:"migrations"`
	RunMigrations bool                    `mapstructure:"run_migrations"`
}

// ModelConfig tunes the isolation forest.
type ModelConfig struct {
	Trees         int     `mapstructure:"trees"`
	Contamination float64 `mapstructure:"contamination"`
	Seed          int64   `mapstructure:"seed"`
	MaxSamples    int     `mapstructure:"max_samples"`
	// Window is the look-back for tx_count_10m.
	Window time.Duration `mapstructure:"window"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

// PublisherConfig selects where non-ALLOW decisions go. Backends is any of
// "nats" and "kafka"; empty disables publishing.
type PublisherConfig struct {
	Backends []string `mapstructure:"backends"`
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("transfer_log.backend", translog.BackendFile)
	v.SetDefault("transfer_log.path", "indexer/out/transfers.jsonl")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "scalperguard")
	v.SetDefault("database.postgres.user", "scalperguard")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.migrations", "file://migrations")
	v.SetDefault("database.run_migrations", true)
	v.SetDefault("model.trees", 200)
	v.SetDefault("model.contamination", 0.1)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.max_samples", 256)
	v.SetDefault("model.window", "10m")

	rd := rules.DefaultConfig()
	v.SetDefault("rules.count_threshold", rd.CountThreshold)
	v.SetDefault("rules.count_weight", rd.CountWeight)
	v.SetDefault("rules.centrality_threshold", rd.CentralityThreshold)
	v.SetDefault("rules.centrality_weight", rd.CentralityWeight)
	v.SetDefault("rules.flip_threshold", rd.FlipThreshold)
	v.SetDefault("rules.flip_weight", rd.FlipWeight)
	v.SetDefault("rules.gap_threshold", rd.GapThreshold)
	v.SetDefault("rules.gap_weight", rd.GapWeight)
	v.SetDefault("rules.gap_on_log_scale", false)

	rk := risk.DefaultConfig()
	v.SetDefault("risk.anomaly_weight", rk.AnomalyWeight)
	v.SetDefault("risk.rule_weight", rk.RuleWeight)
	v.SetDefault("risk.soft_block_threshold", rk.SoftBlockThreshold)
	v.SetDefault("risk.hard_block_threshold", rk.HardBlockThreshold)

	v.SetDefault("redis.url", "")
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 120)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "scalperguard-scoring")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.timeout", "5s")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "scalperguard.decisions")
	v.SetDefault("kafka.client_id", "scalperguard-scoring")
	v.SetDefault("publisher.backends", []string{})
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", "1m")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/scalperguard/scoring")
	}

	v.SetEnvPrefix("SCORING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Model.Trees <= 0:
		return fmt.Errorf("model.trees must be positive")
	case c.Model.Contamination <= 0 || c.Model.Contamination >= 0.5:
		return fmt.Errorf("model.contamination must be in (0, 0.5)")
	case c.Risk.SoftBlockThreshold > c.Risk.HardBlockThreshold:
		return fmt.Errorf("risk.soft_block_threshold must not exceed risk.hard_block_threshold")
	case c.Scheduler.Enabled && c.Scheduler.Interval <= 0:
		return fmt.Errorf("scheduler.interval must be positive")
	case c.RateLimit.Enabled && c.Redis.URL == "":
		return fmt.Errorf("rate_limit.enabled requires redis.url")
	}
	for _, b := range c.Publisher.Backends {
		switch strings.ToLower(b) {
		case "nats", "kafka":
		default:
			return fmt.Errorf("publisher.backends: unknown backend %q", b)
		}
	}
	return nil
}
