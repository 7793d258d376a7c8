// Package risk blends anomaly and rule scores and maps the result to an
// enforcement decision.
package risk

import (
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

// Config holds blend weights and decision thresholds. Thresholds are
// inclusive lower bounds checked from HardBlock down.
type Config struct {
	AnomalyWeight      float64 `mapstructure:"anomaly_weight"`
	RuleWeight         float64 `mapstructure:"rule_weight"`
	SoftBlockThreshold float64 `mapstructure:"soft_block_threshold"`
	HardBlockThreshold float64 `mapstructure:"hard_block_threshold"`
}

// DefaultConfig trusts the anomaly model more than the static rules.
func DefaultConfig() Config {
	return Config{
		AnomalyWeight:      0.6,
		RuleWeight:         0.4,
		SoftBlockThreshold: 70,
		HardBlockThreshold: 85,
	}
}

type Ensembler struct {
	cfg Config
}

func NewEnsembler(cfg Config) *Ensembler {
	return &Ensembler{cfg: cfg}
}

// Combine returns the weighted blend of the two component scores.
func (e *Ensembler) Combine(anomaly, rule float64) float64 {
	return e.cfg.AnomalyWeight*anomaly + e.cfg.RuleWeight*rule
}

// Decide maps a risk score to a decision; the first matching threshold wins.
func (e *Ensembler) Decide(risk float64) models.Decision {
	switch {
	case risk >= e.cfg.HardBlockThreshold:
		return models.DecisionHardBlock
	case risk >= e.cfg.SoftBlockThreshold:
		return models.DecisionSoftBlock
	default:
		return models.DecisionAllow
	}
}

var std = NewEnsembler(DefaultConfig())

// Combine blends with the default weights.
func Combine(anomaly, rule float64) float64 { return std.Combine(anomaly, rule) }

// Decide applies the default thresholds.
func Decide(risk float64) models.Decision { return std.Decide(risk) }
