// Package publisher emits scoring decisions to downstream enforcement
// consumers. It never acts on a decision itself.
package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/telhawk-systems/scalperguard/common/middleware"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

// Publisher delivers the decisions in a report.
type Publisher interface {
	PublishDecisions(ctx context.Context, report *models.ScoreReport) error
	Close() error
}

// DecisionEvent is the message sent for each wallet that is not ALLOW.
type DecisionEvent struct {
	Wallet    string          `json:"wallet"`
	Decision  models.Decision `json:"decision"`
	Risk      float64         `json:"risk"`
	ScoredAt  time.Time       `json:"scored_at"`
	RequestID string          `json:"request_id,omitempty"`
}

// RunSummary is sent once per report.
type RunSummary struct {
	ScoredAt  time.Time               `json:"scored_at"`
	Events    int                     `json:"events"`
	Wallets   int                     `json:"wallets"`
	Decisions map[models.Decision]int `json:"decisions"`
	RequestID string                  `json:"request_id,omitempty"`
}

// DecisionEvents builds one event per flagged wallet, in report order.
func DecisionEvents(ctx context.Context, report *models.ScoreReport) []DecisionEvent {
	if report == nil {
		return nil
	}
	reqID := middleware.GetRequestID(ctx)
	flagged := report.Flagged()
	out := make([]DecisionEvent, 0, len(flagged))
	for _, w := range flagged {
		out = append(out, DecisionEvent{
			Wallet:    w.Wallet,
			Decision:  w.Decision,
			Risk:      w.Risk,
			ScoredAt:  report.Now,
			RequestID: reqID,
		})
	}
	return out
}

// Summarize builds the run summary for report.
func Summarize(ctx context.Context, report *models.ScoreReport) RunSummary {
	return RunSummary{
		ScoredAt:  report.Now,
		Events:    report.EventCount,
		Wallets:   len(report.Wallets),
		Decisions: report.CountByDecision(),
		RequestID: middleware.GetRequestID(ctx),
	}
}

// Noop discards everything.
type Noop struct{}

func (Noop) PublishDecisions(context.Context, *models.ScoreReport) error { return nil }
func (Noop) Close() error                                                { return nil }

// Multi fans a report out to every publisher. All publishers are attempted;
// errors are joined.
type Multi []Publisher

func (m Multi) PublishDecisions(ctx context.Context, report *models.ScoreReport) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishDecisions(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
