// Package anomaly scores wallets with an isolation forest fitted on the
// current snapshot and maps the raw outlier values onto 0..100.
package anomaly

import (
	"errors"
	"fmt"
	"math"

	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

// ErrNoFeatures is returned when asked to score an empty feature set.
var ErrNoFeatures = errors.New("anomaly: no feature vectors to score")

const (
	// zEpsilon keeps the z-score finite when every raw value is identical.
	zEpsilon = 1e-6

	zScale  = 15.0
	zCenter = 50.0
)

// Result holds per-wallet outputs keyed by wallet.
type Result struct {
	// Scores are normalised to [0,100].
	Scores map[string]float64
	// Raw are the un-normalised forest scores, higher is more anomalous.
	Raw map[string]float64
	// Outliers applies the contamination threshold.
	Outliers map[string]bool
}

// Scorer fits a fresh forest on every call; no model state survives between
// calls.
type Scorer struct {
	Trees         int
	Contamination float64
	Seed          int64
	MaxSamples    int
}

// DefaultScorer returns 200 trees, 10% contamination and seed 42.
func DefaultScorer() Scorer {
	return Scorer{
		Trees:         200,
		Contamination: 0.1,
		Seed:          42,
		MaxSamples:    DefaultMaxSamples,
	}
}

// Matrix builds model input rows: count, log1p(gap), centrality, flip.
func Matrix(features []models.WalletFeatures) [][]float64 {
	X := make([][]float64, len(features))
	for i, f := range features {
		X[i] = []float64{
			float64(f.TxCount10m),
			math.Log1p(f.AvgGapSec),
			f.DegreeCentrality,
			f.FlipRatio,
		}
	}
	return X
}

// Score fits and scores features in one shot.
func (s Scorer) Score(features []models.WalletFeatures) (*Result, error) {
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}

	X := Matrix(features)
	forest := &IsolationForest{
		Trees:         s.Trees,
		MaxSamples:    s.MaxSamples,
		Contamination: s.Contamination,
		Seed:          s.Seed,
	}
	if err := forest.Fit(X); err != nil {
		return nil, fmt.Errorf("fit isolation forest: %w", err)
	}

	raw, err := forest.ScoreSamples(X)
	if err != nil {
		return nil, fmt.Errorf("score isolation forest: %w", err)
	}
	normalized := Normalize(raw)
	flags := forest.Outliers(raw)

	res := &Result{
		Scores:   make(map[string]float64, len(features)),
		Raw:      make(map[string]float64, len(features)),
		Outliers: make(map[string]bool, len(features)),
	}
	for i, f := range features {
		res.Scores[f.Wallet] = normalized[i]
		res.Raw[f.Wallet] = raw[i]
		res.Outliers[f.Wallet] = flags[i]
	}
	return res, nil
}

// Normalize z-scores values against their population mean and standard
// deviation and maps z to clip(z*15+50, 0, 100).
func Normalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(values)))

	out := make([]float64, len(values))
	for i, v := range values {
		z := (v - mean) / (std + zEpsilon)
		out[i] = Clip(z*zScale+zCenter, 0, 100)
	}
	return out
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
