package models

import "time"

// Decision is the enforcement label attached to a wallet.
type Decision string

const (
	DecisionAllow     Decision = "ALLOW"
	DecisionSoftBlock Decision = "SOFT_BLOCK"
	DecisionHardBlock Decision = "HARD_BLOCK"
)

// Valid reports whether d is one of the known labels.
func (d Decision) Valid() bool {
	switch d {
	case DecisionAllow, DecisionSoftBlock, DecisionHardBlock:
		return true
	}
	return false
}

// Blocking reports whether d asks enforcement tooling to act.
func (d Decision) Blocking() bool {
	return d == DecisionSoftBlock || d == DecisionHardBlock
}

// NoTransfersNote marks a report built from an empty log.
const NoTransfersNote = "no transfers yet"

// WalletFeatures is the behavioural feature vector for one wallet.
type WalletFeatures struct {
	Wallet           string  `json:"-"`
	TxCount10m       int     `json:"tx_count_10m"`
	AvgGapSec        float64 `json:"avg_gap_sec"`
	DegreeCentrality float64 `json:"degree_centrality"`
	FlipRatio        float64 `json:"flip_ratio"`
}

// ScoreComponents exposes the two inputs to the risk blend.
type ScoreComponents struct {
	Anomaly float64 `json:"anomaly"`
	Rule    float64 `json:"rule"`
	Outlier bool    `json:"outlier"`
}

// WalletScore is the scored result for one wallet. Details echoes the raw
// features after default filling.
type WalletScore struct {
	Wallet     string          `json:"wallet"`
	Risk       float64         `json:"risk"`
	Decision   Decision        `json:"decision"`
	Details    WalletFeatures  `json:"details"`
	Components ScoreComponents `json:"components"`
}

// ScoreReport is the answer to one scoring query. An empty log produces an
// empty Wallets slice and Note set to NoTransfersNote.
type ScoreReport struct {
	Wallets    []WalletScore `json:"wallets"`
	Note       string        `json:"note,omitempty"`
	Now        time.Time     `json:"now,omitzero"`
	EventCount int           `json:"event_count"`
}

// Empty reports whether the report was built from an empty snapshot.
func (r *ScoreReport) Empty() bool {
	return len(r.Wallets) == 0
}

// CountByDecision tallies wallets per decision label.
func (r *ScoreReport) CountByDecision() map[Decision]int {
	counts := make(map[Decision]int, 3)
	for _, w := range r.Wallets {
		counts[w.Decision]++
	}
	return counts
}

// Flagged returns the wallets whose decision is not ALLOW, in report order.
func (r *ScoreReport) Flagged() []WalletScore {
	var out []WalletScore
	for _, w := range r.Wallets {
		if w.Decision.Blocking() {
			out = append(out, w)
		}
	}
	return out
}
