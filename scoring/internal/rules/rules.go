// Package rules scores wallets with fixed, additive heuristics.
package rules

import (
	"math"

	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

// Rule names reported in Evaluation.Hits.
const (
	RuleBurst     = "burst_activity"
	RuleHub       = "hub_wallet"
	RuleFlip      = "round_trip"
	RuleRapidFire = "rapid_fire"
)

// MaxScore caps an Evaluation score.
const MaxScore = 100.0

const (
	defaultBurstThreshold     = 3
	defaultBurstWeight        = 30.0
	defaultHubThreshold       = 0.2
	defaultHubWeight          = 20.0
	defaultFlipThreshold      = 0.1
	defaultFlipWeight         = 20.0
	defaultRapidFireThreshold = 60.0
	defaultRapidFireWeight    = 30.0
)

// Config holds thresholds and weights. Comparisons are:
// count >= CountThreshold, centrality > CentralityThreshold,
// flip > FlipThreshold, gap < GapThreshold.
type Config struct {
	CountThreshold      int     `mapstructure:"count_threshold"`
	CountWeight         float64 `mapstructure:"count_weight"`
	CentralityThreshold float64 `mapstructure:"centrality_threshold"`
	CentralityWeight    float64 `mapstructure:"centrality_weight"`
	FlipThreshold       float64 `mapstructure:"flip_threshold"`
	FlipWeight          float64 `mapstructure:"flip_weight"`
	GapThreshold        float64 `mapstructure:"gap_threshold"`
	GapWeight           float64 `mapstructure:"gap_weight"`

	// GapOnLogScale compares log1p(avg_gap_sec) rather than raw seconds
	// against GapThreshold. With the default threshold of 60 this makes the
	// gap rule fire for every wallet, including those with the 9999 sentinel.
	GapOnLogScale bool `mapstructure:"gap_on_log_scale"`
}

// DefaultConfig returns the stock rule set.
func DefaultConfig() Config {
	return Config{
		CountThreshold:      defaultBurstThreshold,
		CountWeight:         defaultBurstWeight,
		CentralityThreshold: defaultHubThreshold,
		CentralityWeight:    defaultHubWeight,
		FlipThreshold:       defaultFlipThreshold,
		FlipWeight:          defaultFlipWeight,
		GapThreshold:        defaultRapidFireThreshold,
		GapWeight:           defaultRapidFireWeight,
	}
}

// Evaluation is the outcome for one wallet.
type Evaluation struct {
	Score float64
	Hits  []string
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate applies every rule independently and clips the sum to [0,100].
func (e *Engine) Evaluate(f models.WalletFeatures) Evaluation {
	var ev Evaluation
	add := func(name string, weight float64) {
		ev.Score += weight
		ev.Hits = append(ev.Hits, name)
	}

	if f.TxCount10m >= e.cfg.CountThreshold {
		add(RuleBurst, e.cfg.CountWeight)
	}
	if f.DegreeCentrality > e.cfg.CentralityThreshold {
		add(RuleHub, e.cfg.CentralityWeight)
	}
	if f.FlipRatio > e.cfg.FlipThreshold {
		add(RuleFlip, e.cfg.FlipWeight)
	}

	gap := f.AvgGapSec
	if e.cfg.GapOnLogScale {
		gap = math.Log1p(gap)
	}
	if gap < e.cfg.GapThreshold {
		add(RuleRapidFire, e.cfg.GapWeight)
	}

	ev.Score = math.Max(0, math.Min(MaxScore, ev.Score))
	return ev
}

// Score returns rule scores keyed by wallet.
func (e *Engine) Score(features []models.WalletFeatures) map[string]float64 {
	out := make(map[string]float64, len(features))
	for _, f := range features {
		out[f.Wallet] = e.Evaluate(f).Score
	}
	return out
}
