package translog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telhawk-systems/scalperguard/common/database"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

// PostgresSource reads transfers from the transfers table.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(ctx context.Context, connString string) (*PostgresSource, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := database.QueryContext(ctx)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSource{pool: pool}, nil
}

func (s *PostgresSource) Close() {
	s.pool.Close()
}

// Ping checks connectivity for readiness probes.
func (s *PostgresSource) Ping(ctx context.Context) error {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

const selectTransfers = `
	SELECT ts, block, tx, from_addr, to_addr, token_id
	FROM transfers
	ORDER BY ts, id`

// Snapshot runs in a single repeatable-read transaction.
func (s *PostgresSource) Snapshot(ctx context.Context) ([]models.TransferEvent, error) {
	ctx, cancel := database.BulkContext(ctx)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, selectTransfers)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TransferEvent, error) {
		var ev models.TransferEvent
		err := row.Scan(&ev.Timestamp, &ev.Block, &ev.Tx, &ev.From, &ev.To, &ev.TokenID)
		ev.Timestamp = ev.Timestamp.UTC()
		return ev, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan transfers: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return events, nil
}

// Append inserts events in one batch.
func (s *PostgresSource) Append(ctx context.Context, events ...models.TransferEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, ev := range events {
		if err := validate(ev); err != nil {
			return err
		}
	}

	ctx, cancel := database.WriteContext(ctx)
	defer cancel()

	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO transfers (ts, block, tx, from_addr, to_addr, token_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			ev.Timestamp.UTC(), ev.Block, ev.Tx, ev.From, ev.To, ev.TokenID,
		)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert transfers: %w", err)
	}
	return nil
}
