package domain

import "time"

// RankedCandidate is a scored staff member inside a routing decision.
type RankedCandidate struct {
	StaffID    string  `json:"staffId"`
	Name       string  `json:"name"`
	MatchScore float64 `json:"matchScore"`
}

// RoutingDecision is the immutable result of one routing call.
type RoutingDecision struct {
	AssigneeID              string            `json:"assigneeId"`
	AssigneeName            string            `json:"assigneeName"`
	Reason                  string            `json:"reason"`
	Confidence              float64           `json:"confidence"`
	EscalationPath          []StaffRole       `json:"escalationPath"`
	EstimatedResolutionTime time.Duration     `json:"estimatedResolutionTime"`
	SuggestedPriority       Priority          `json:"suggestedPriority"`
	Alternates              []RankedCandidate `json:"alternates,omitempty"`
}

// EscalationTimeline buckets how soon an escalation is expected.
type EscalationTimeline string

const (
	TimelineWithinHour    EscalationTimeline = "within 1 hour"
	TimelineWithinFour    EscalationTimeline = "within 4 hours"
	TimelineWithinDay     EscalationTimeline = "within 24 hours"
	TimelineLowLikelihood EscalationTimeline = "low likelihood"
)

// EscalationPrediction is the immutable result of one prediction call.
type EscalationPrediction struct {
	ShouldEscalate    bool               `json:"shouldEscalate"`
	Probability       float64            `json:"probability"`
	Target            StaffRole          `json:"target"`
	Reasoning         []string           `json:"reasoning,omitempty"`
	RiskFactors       []string           `json:"riskFactors,omitempty"`
	PreventiveActions []string           `json:"preventiveActions,omitempty"`
	Timeline          EscalationTimeline `json:"timeline"`
}

// HistoricalOutcomes summarizes past cases similar to the one being scored.
type HistoricalOutcomes struct {
	SimilarCount   int `json:"similarCount"`
	EscalatedCount int `json:"escalatedCount"`
}
