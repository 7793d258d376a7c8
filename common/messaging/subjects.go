package messaging

import "strings"

// Subjects follow {domain}.{resource}.{qualifier}.
const (
	// SubjectScoringDecisions is the prefix for per-wallet enforcement
	// decisions; the decision label is appended, e.g.
	// scoring.decisions.hard_block.
	SubjectScoringDecisions = "scoring.decisions"

	// SubjectScoringRuns carries one summary per completed scoring run.
	SubjectScoringRuns = "scoring.runs.completed"

	// SubjectScoringDecisionsAll matches every decision subject.
	SubjectScoringDecisionsAll = SubjectScoringDecisions + ".>"
)

// Queue groups for load-balanced consumers.
const (
	QueueEnforcementWorkers = "enforcement-workers"
)

// DecisionSubject returns the subject for a decision label.
func DecisionSubject(decision string) string {
	return SubjectScoringDecisions + "." + strings.ToLower(decision)
}
