// Package translog reads snapshots of the append-only transfer log.
package translog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

// Backends accepted by NewSource.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

var (
	ErrUnsupportedBackend = errors.New("unsupported transfer log backend")
	ErrInvalidEvent       = errors.New("invalid transfer event")
)

// Source yields a consistent snapshot of every transfer observed so far.
type Source interface {
	Snapshot(ctx context.Context) ([]models.TransferEvent, error)
}

// Appender adds events to the log. Used for backfill and tests.
type Appender interface {
	Append(ctx context.Context, events ...models.TransferEvent) error
}

// ParseError reports a malformed record. Line is 1-based.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transfer log line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Config selects and configures a Source.
type Config struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// NewSource builds the Source named by cfg.Backend. pool-backed sources are
// constructed by the caller and passed via postgres; it may be nil for the
// file backend.
func NewSource(cfg Config, postgres *PostgresSource) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file backend: path is required")
		}
		return NewFileSource(cfg.Path), nil
	case BackendPostgres:
		if postgres == nil {
			return nil, fmt.Errorf("postgres backend: no connection configured")
		}
		return postgres, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}

// maxUnix is 9999-12-31T23:59:59Z, the last second RFC 3339 can carry.
const maxUnix = 253402300799

func validate(e models.TransferEvent) error {
	switch {
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: missing ts", ErrInvalidEvent)
	case e.Timestamp.Unix() < 0 || e.Timestamp.Unix() > maxUnix:
		return fmt.Errorf("%w: ts %s out of range", ErrInvalidEvent, e.Timestamp.Format(time.RFC3339))
	case e.From == "":
		return fmt.Errorf("%w: missing from", ErrInvalidEvent)
	case e.To == "":
		return fmt.Errorf("%w: missing to", ErrInvalidEvent)
	}
	return nil
}
