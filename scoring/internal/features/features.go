// Package features turns a transfer log snapshot into one behavioural feature
// vector per wallet.
package features

import (
	"sort"
	"time"

	"github.com/telhawk-systems/scalperguard/scoring/internal/graph"
	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

// Extractor computes wallet features. The zero value uses models.Window.
type Extractor struct {
	Window time.Duration
}

// Compute is Extractor{}.Compute.
func Compute(events []models.TransferEvent, now *time.Time) []models.WalletFeatures {
	return Extractor{}.Compute(events, now)
}

// Compute returns one feature vector per wallet seen as sender or recipient,
// sorted by wallet. now defaults to the latest event timestamp. The result
// does not depend on the order of events, and events is not modified.
//
// Precondition: events are well formed (non-empty From/To, valid Timestamp).
func (x Extractor) Compute(events []models.TransferEvent, now *time.Time) []models.WalletFeatures {
	if len(events) == 0 {
		return nil
	}

	window := x.Window
	if window <= 0 {
		window = models.Window
	}

	sorted := make([]models.TransferEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	ref := sorted[len(sorted)-1].Timestamp
	if now != nil {
		ref = *now
	}
	cutoff := ref.Add(-window)

	counts := windowCounts(sorted, cutoff)
	gaps := averageGaps(sorted)
	g := buildGraph(sorted)
	centrality := g.DegreeCentrality()
	flips := flipRatios(g)

	wallets := make([]string, 0, len(gaps))
	for w := range gaps {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)

	out := make([]models.WalletFeatures, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, models.WalletFeatures{
			Wallet:           w,
			TxCount10m:       counts[w],
			AvgGapSec:        gaps[w],
			DegreeCentrality: centrality[w],
			FlipRatio:        flips[w],
		})
	}
	return out
}

// windowCounts counts events at or after cutoff once per role, so a
// self-transfer adds two.
func windowCounts(sorted []models.TransferEvent, cutoff time.Time) map[string]int {
	counts := make(map[string]int)
	for _, e := range sorted {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		counts[e.From]++
		counts[e.To]++
	}
	return counts
}

// averageGaps returns the mean spacing in seconds between consecutive events
// touching each wallet, over the whole log. Wallets with a single event get
// models.GapSentinel. Every wallet in the log has an entry.
func averageGaps(sorted []models.TransferEvent) map[string]float64 {
	type acc struct {
		last  time.Time
		sum   float64
		n     int
		count int
	}
	seen := make(map[string]*acc)

	touch := func(w string, ts time.Time) {
		a, ok := seen[w]
		if !ok {
			seen[w] = &acc{last: ts, count: 1}
			return
		}
		a.sum += ts.Sub(a.last).Seconds()
		a.n++
		a.count++
		a.last = ts
	}

	for _, e := range sorted {
		touch(e.From, e.Timestamp)
		if e.To != e.From {
			touch(e.To, e.Timestamp)
		}
	}

	gaps := make(map[string]float64, len(seen))
	for w, a := range seen {
		if a.count < 2 {
			gaps[w] = models.GapSentinel
			continue
		}
		gaps[w] = a.sum / float64(a.n)
	}
	return gaps
}

func buildGraph(sorted []models.TransferEvent) *graph.Directed {
	g := graph.New()
	for _, e := range sorted {
		g.AddEdge(e.From, e.To)
	}
	return g
}

// flipRatios computes, per wallet, the share of distinct directed pairs
// touching it whose reverse pair is also present. Self-loops never count as
// reversed but do count in the denominator.
func flipRatios(g *graph.Directed) map[string]float64 {
	touching := make(map[string]int, g.Len())
	reversed := make(map[string]int, g.Len())

	for _, e := range g.Edges() {
		if e.SelfLoop() {
			touching[e.From]++
			continue
		}
		touching[e.From]++
		touching[e.To]++
		if r := e.Reverse(); g.HasEdge(r.From, r.To) {
			reversed[e.From]++
			reversed[e.To]++
		}
	}

	ratios := make(map[string]float64, len(touching))
	for w, n := range touching {
		ratios[w] = float64(reversed[w]) / float64(max(n, 1))
	}
	return ratios
}
