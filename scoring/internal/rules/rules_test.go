package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

func TestEvaluate(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tests := []struct {
		name     string
		features models.WalletFeatures
		want     float64
		hits     []string
	}{
		{
			name:     "quiet wallet scores zero",
			features: models.WalletFeatures{AvgGapSec: models.GapSentinel},
			want:     0,
		},
		{
			name:     "count threshold is inclusive",
			features: models.WalletFeatures{TxCount10m: 3, AvgGapSec: models.GapSentinel},
			want:     30,
			hits:     []string{RuleBurst},
		},
		{
			name:     "count below threshold",
			features: models.WalletFeatures{TxCount10m: 2, AvgGapSec: models.GapSentinel},
			want:     0,
		},
		{
			name:     "centrality threshold is exclusive",
			features: models.WalletFeatures{DegreeCentrality: 0.2, AvgGapSec: models.GapSentinel},
			want:     0,
		},
		{
			name:     "centrality above threshold",
			features: models.WalletFeatures{DegreeCentrality: 0.21, AvgGapSec: models.GapSentinel},
			want:     20,
			hits:     []string{RuleHub},
		},
		{
			name:     "flip threshold is exclusive",
			features: models.WalletFeatures{FlipRatio: 0.1, AvgGapSec: models.GapSentinel},
			want:     0,
		},
		{
			name:     "gap threshold is exclusive",
			features: models.WalletFeatures{AvgGapSec: 60},
			want:     0,
		},
		{
			name:     "fast gap",
			features: models.WalletFeatures{AvgGapSec: 59.9},
			want:     30,
			hits:     []string{RuleRapidFire},
		},
		{
			name:     "round trip scalper without hub",
			features: models.WalletFeatures{TxCount10m: 3, AvgGapSec: 4, FlipRatio: 1, DegreeCentrality: 0.1},
			want:     80,
			hits:     []string{RuleBurst, RuleFlip, RuleRapidFire},
		},
		{
			name:     "everything fires and sums to the cap",
			features: models.WalletFeatures{TxCount10m: 10, AvgGapSec: 1, FlipRatio: 1, DegreeCentrality: 1},
			want:     100,
			hits:     []string{RuleBurst, RuleHub, RuleFlip, RuleRapidFire},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := engine.Evaluate(tt.features)
			assert.Equal(t, tt.want, ev.Score)
			assert.Equal(t, tt.hits, ev.Hits)
		})
	}
}

func TestEvaluate_ClipsOverweightConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CountWeight = 80
	cfg.GapWeight = 80
	ev := NewEngine(cfg).Evaluate(models.WalletFeatures{TxCount10m: 5, AvgGapSec: 1})
	assert.Equal(t, 100.0, ev.Score)

	cfg = DefaultConfig()
	cfg.CountWeight = -50
	ev = NewEngine(cfg).Evaluate(models.WalletFeatures{TxCount10m: 5, AvgGapSec: models.GapSentinel})
	assert.Equal(t, 0.0, ev.Score)
}

func TestEvaluate_GapOnLogScale(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GapOnLogScale = true
	engine := NewEngine(cfg)

	// log1p(9999) is about 9.2, well under 60.
	ev := engine.Evaluate(models.WalletFeatures{AvgGapSec: models.GapSentinel})
	assert.Equal(t, 30.0, ev.Score)
	assert.Equal(t, []string{RuleRapidFire}, ev.Hits)
}

func TestScore_KeyedByWallet(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	got := engine.Score([]models.WalletFeatures{
		{Wallet: "A", TxCount10m: 3, AvgGapSec: models.GapSentinel},
		{Wallet: "B", AvgGapSec: models.GapSentinel},
	})
	assert.Equal(t, map[string]float64{"A": 30, "B": 0}, got)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, Config{
		CountThreshold:      3,
		CountWeight:         30,
		CentralityThreshold: 0.2,
		CentralityWeight:    20,
		FlipThreshold:       0.1,
		FlipWeight:          20,
		GapThreshold:        60,
		GapWeight:           30,
	}, cfg)
	assert.Equal(t, MaxScore, cfg.CountWeight+cfg.CentralityWeight+cfg.FlipWeight+cfg.GapWeight)
}
