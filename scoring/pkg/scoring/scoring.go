// Package scoring exposes the wallet risk pipeline and the JSONL transfer log
// to tools outside the scoring service.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
	"github.com/telhawk-systems/scalperguard/scoring/internal/pipeline"
	"github.com/telhawk-systems/scalperguard/scoring/internal/publisher"
	"github.com/telhawk-systems/scalperguard/scoring/internal/translog"
)

type (
	Transfer       = models.TransferEvent
	Report         = models.ScoreReport
	WalletScore    = models.WalletScore
	WalletFeatures = models.WalletFeatures
	Decision       = models.Decision

	// DecisionEvent is the message published for each blocked wallet.
	DecisionEvent = publisher.DecisionEvent
)

const (
	DecisionAllow     = models.DecisionAllow
	DecisionSoftBlock = models.DecisionSoftBlock
	DecisionHardBlock = models.DecisionHardBlock

	NoTransfersNote = models.NoTransfersNote
)

// ScoreEvents scores an in-memory snapshot with the default pipeline.
func ScoreEvents(events []Transfer, now *time.Time) (*Report, error) {
	return pipeline.New().Process(events, now)
}

// ScoreFile reads the JSONL log at path and scores it.
func ScoreFile(ctx context.Context, path string, now *time.Time) (*Report, error) {
	events, err := translog.NewFileSource(path).Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ScoreEvents(events, now)
}

// AppendTransfers appends events to the JSONL log at path, creating it if
// needed.
func AppendTransfers(ctx context.Context, path string, events ...Transfer) error {
	return translog.NewFileSource(path).Append(ctx, events...)
}
