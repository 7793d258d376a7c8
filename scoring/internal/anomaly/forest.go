package anomaly

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/telhawk-systems/scalperguard/common/rng"
)

// eulerGamma is the Euler-Mascheroni constant used by the harmonic-number
// approximation in averagePathLength.
const eulerGamma = 0.5772156649

// DefaultMaxSamples caps the per-tree subsample.
const DefaultMaxSamples = 256

var (
	// ErrNotFitted is returned when scoring before Fit.
	ErrNotFitted = errors.New("isolation forest has not been fitted")
	// ErrEmptyMatrix is returned when fitting zero rows.
	ErrEmptyMatrix = errors.New("cannot fit isolation forest on an empty matrix")
)

// IsolationForest is an ensemble of random isolation trees. Points that are
// isolated after fewer splits score as more anomalous.
//
// Fitting is deterministic for a given Seed: tree i draws from its own stream
// derived from (Seed, i).
type IsolationForest struct {
	Trees         int
	MaxSamples    int
	Contamination float64
	Seed          int64

	roots     []*node
	psi       int
	features  int
	threshold float64
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node

	// size is the number of training rows that reached a leaf.
	size int
}

func (n *node) leaf() bool { return n.left == nil }

// Fit builds the ensemble on X. Rows must all have the same width.
func (f *IsolationForest) Fit(X [][]float64) error {
	if len(X) == 0 {
		return ErrEmptyMatrix
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}

	trees := f.Trees
	if trees <= 0 {
		trees = 100
	}
	maxSamples := f.MaxSamples
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}

	f.features = width
	f.psi = min(maxSamples, len(X))
	maxDepth := int(math.Ceil(math.Log2(float64(max(f.psi, 2)))))

	streams := rng.New(rng.Deterministic, f.Seed)
	f.roots = make([]*node, trees)
	for t := 0; t < trees; t++ {
		r := streams.Fresh(fmt.Sprintf("tree-%d", t))
		sample := r.Perm(len(X))[:f.psi]
		b := builder{X: X, width: width, maxDepth: maxDepth, rand: r.Float64, pick: r.Intn}
		f.roots[t] = b.build(sample, 0)
	}

	f.threshold = percentile(f.scores(X), 100*(1-f.Contamination))
	return nil
}

// ScoreSamples returns 2^(-E[h(x)]/c(psi)) for every row: values near 1 are
// anomalous, values well under 0.5 are normal.
func (f *IsolationForest) ScoreSamples(X [][]float64) ([]float64, error) {
	if f.roots == nil {
		return nil, ErrNotFitted
	}
	for i, row := range X {
		if len(row) != f.features {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), f.features)
		}
	}
	return f.scores(X), nil
}

// Threshold is the score above which a row counts as an outlier, set from
// Contamination at fit time.
func (f *IsolationForest) Threshold() float64 {
	return f.threshold
}

// Outliers flags scores, as returned by ScoreSamples, that lie above
// Threshold.
func (f *IsolationForest) Outliers(scores []float64) []bool {
	out := make([]bool, len(scores))
	for i, s := range scores {
		out[i] = s > f.threshold
	}
	return out
}

func (f *IsolationForest) scores(X [][]float64) []float64 {
	norm := averagePathLength(f.psi)
	out := make([]float64, len(X))
	for i, row := range X {
		var total float64
		for _, root := range f.roots {
			total += pathLength(root, row)
		}
		if norm == 0 {
			out[i] = 0.5
			continue
		}
		mean := total / float64(len(f.roots))
		out[i] = math.Exp2(-mean / norm)
	}
	return out
}

type builder struct {
	X        [][]float64
	width    int
	maxDepth int
	rand     func() float64
	pick     func(int) int
}

func (b *builder) build(rows []int, depth int) *node {
	if len(rows) <= 1 || depth >= b.maxDepth {
		return &node{size: len(rows)}
	}

	lo := make([]float64, b.width)
	hi := make([]float64, b.width)
	for j := 0; j < b.width; j++ {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}
	for _, r := range rows {
		for j, v := range b.X[r] {
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}

	var candidates []int
	for j := 0; j < b.width; j++ {
		if hi[j] > lo[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(rows)}
	}

	feat := candidates[b.pick(len(candidates))]
	thr := lo[feat] + b.rand()*(hi[feat]-lo[feat])
	if thr >= hi[feat] {
		thr = math.Nextafter(hi[feat], lo[feat])
	}

	var left, right []int
	for _, r := range rows {
		if b.X[r][feat] <= thr {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	return &node{
		feature:   feat,
		threshold: thr,
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
	}
}

func pathLength(n *node, row []float64) float64 {
	depth := 0
	for !n.leaf() {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is c(n), the mean unsuccessful-search path length in a
// binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	p = math.Max(0, math.Min(100, p))
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
