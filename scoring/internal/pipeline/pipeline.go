// Package pipeline runs one scoring pass over a transfer log snapshot.
package pipeline

import (
	"fmt"
	"time"

	"github.com/telhawk-systems/scalperguard/scoring/internal/anomaly"
	"github.com/telhawk-systems/scalperguard/scoring/internal/features"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
	"github.com/telhawk-systems/scalperguard/scoring/internal/risk"
	"github.com/telhawk-systems/scalperguard/scoring/internal/rules"
)

// AnomalyScorer fits and scores one feature set.
type AnomalyScorer interface {
	Score(features []models.WalletFeatures) (*anomaly.Result, error)
}

// RuleScorer evaluates heuristic rules for one wallet.
type RuleScorer interface {
	Evaluate(f models.WalletFeatures) rules.Evaluation
}

// Pipeline wires feature extraction, the two scoring engines and the risk
// ensembler. It keeps no state between calls.
type Pipeline struct {
	extractor features.Extractor
	anomaly   AnomalyScorer
	rules     RuleScorer
	ensembler *risk.Ensembler
}

// Option customises a Pipeline.
type Option func(*Pipeline)

func WithWindow(d time.Duration) Option {
	return func(p *Pipeline) { p.extractor.Window = d }
}

func WithAnomalyScorer(s AnomalyScorer) Option {
	return func(p *Pipeline) { p.anomaly = s }
}

func WithRuleScorer(s RuleScorer) Option {
	return func(p *Pipeline) { p.rules = s }
}

func WithEnsembler(e *risk.Ensembler) Option {
	return func(p *Pipeline) { p.ensembler = e }
}

// New creates a pipeline with the default engines.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		anomaly:   anomaly.DefaultScorer(),
		rules:     rules.NewEngine(rules.DefaultConfig()),
		ensembler: risk.NewEnsembler(risk.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process scores every wallet in events. now defaults to the latest event
// timestamp. An empty snapshot yields an empty report with the
// NoTransfersNote marker and never fits a model.
func (p *Pipeline) Process(events []models.TransferEvent, now *time.Time) (*models.ScoreReport, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline not configured")
	}

	if len(events) == 0 {
		return &models.ScoreReport{
			Wallets: []models.WalletScore{},
			Note:    models.NoTransfersNote,
		}, nil
	}

	ref := models.LatestTimestamp(events)
	if now != nil {
		ref = *now
	}

	feats := p.extractor.Compute(events, &ref)

	anom, err := p.anomaly.Score(feats)
	if err != nil {
		return nil, fmt.Errorf("anomaly: %w", err)
	}

	report := &models.ScoreReport{
		Wallets:    make([]models.WalletScore, 0, len(feats)),
		Now:        ref,
		EventCount: len(events),
	}
	for _, f := range feats {
		a := anom.Scores[f.Wallet]
		r := p.rules.Evaluate(f).Score
		score := p.ensembler.Combine(a, r)
		report.Wallets = append(report.Wallets, models.WalletScore{
			Wallet:   f.Wallet,
			Risk:     score,
			Decision: p.ensembler.Decide(score),
			Details:  f,
			Components: models.ScoreComponents{
				Anomaly: a,
				Rule:    r,
				Outlier: anom.Outliers[f.Wallet],
			},
		})
	}
	return report, nil
}
