// Package escalation predicts whether a support case will escalate.
package escalation

import (
	"fmt"

	"github.com/paddockpulse/stablehand/internal/domain"
)

// Risk score contributions. Applied independently and cumulatively on top
// of the base, then blended with the historical escalation rate.
const (
	baseProbability  = 0.10
	frustratedWeight = 0.40
	negativeWeight   = 0.20
	criticalWeight   = 0.30
	highWeight       = 0.15
	billingWeight    = 0.20
	escPhraseWeight  = 0.50
	bizImpactWeight  = 0.20

	escalateThreshold = 0.6
	probabilityCap    = 0.95
)

// Config tunes the predictor. The zero value is not usable; use
// DefaultConfig.
type Config struct {
	// HistoryWeight blends the accumulated risk score with the historical
	// escalation rate: p = (1−w)·score + w·rate. The source product used a
	// plain average; 0.5 preserves that and is left tunable rather than
	// second-guessed.
	HistoryWeight float64
}

// DefaultConfig returns the standard predictor tuning.
func DefaultConfig() Config {
	return Config{HistoryWeight: 0.5}
}

// Predictor computes escalation predictions. Predict is a pure function of
// its inputs and the fixed config.
type Predictor struct {
	cfg Config
}

// NewPredictor creates a predictor with the given tuning.
func NewPredictor(cfg Config) *Predictor {
	return &Predictor{cfg: cfg}
}

// Predict scores one ticket/signal pair against historical outcomes.
func (p *Predictor) Predict(ticket domain.Ticket, sig domain.ContentSignal, history domain.HistoricalOutcomes) domain.EscalationPrediction {
	score := baseProbability
	var reasoning, risks []string

	switch sig.Sentiment {
	case domain.SentimentFrustrated:
		score += frustratedWeight
		reasoning = append(reasoning, "customer sentiment is frustrated")
		risks = append(risks, "emotional escalation risk")
	case domain.SentimentNegative:
		score += negativeWeight
		reasoning = append(reasoning, "customer sentiment is negative")
	}

	switch ticket.Priority {
	case domain.PriorityCritical:
		score += criticalWeight
		reasoning = append(reasoning, "ticket priority is critical")
	case domain.PriorityHigh:
		score += highWeight
		reasoning = append(reasoning, "ticket priority is high")
	}

	if ticket.Category == domain.CategoryBilling {
		score += billingWeight
		reasoning = append(reasoning, "billing issues escalate more often")
		risks = append(risks, "payment dispute")
	}

	if len(sig.PrioritySignals.EscalationPhrases) > 0 {
		score += escPhraseWeight
		reasoning = append(reasoning,
			fmt.Sprintf("customer used escalation language (%d phrase(s))",
				len(sig.PrioritySignals.EscalationPhrases)))
		risks = append(risks, "explicit escalation request")
	}

	if len(sig.PrioritySignals.BusinessImpact) > 0 {
		score += bizImpactWeight
		reasoning = append(reasoning, "business impact mentioned")
		risks = append(risks, "commercial impact")
	}

	similar := history.SimilarCount
	if similar < 1 {
		similar = 1
	}
	rate := float64(history.EscalatedCount) / float64(similar)
	if history.SimilarCount > 0 {
		reasoning = append(reasoning,
			fmt.Sprintf("%d of %d similar cases escalated",
				history.EscalatedCount, history.SimilarCount))
	}

	w := p.cfg.HistoryWeight
	prob := (1-w)*score + w*rate
	if prob < 0 {
		prob = 0
	}
	if prob > probabilityCap {
		prob = probabilityCap
	}

	pred := domain.EscalationPrediction{
		ShouldEscalate: prob > escalateThreshold,
		Probability:    prob,
		Target:         target(ticket, sig),
		Reasoning:      reasoning,
		RiskFactors:    risks,
		Timeline:       timeline(prob),
	}
	pred.PreventiveActions = preventiveActions(pred, sig)
	return pred
}

// target picks where an escalation should land: technical issues go to a
// specialist, everything else to a manager.
func target(ticket domain.Ticket, sig domain.ContentSignal) domain.StaffRole {
	if sig.Complexity == domain.ComplexityHigh ||
		ticket.Category == domain.CategoryTechnical ||
		ticket.Category == domain.CategoryAISupport {
		return domain.RoleTechnicalSpecialist
	}
	return domain.RoleSupportManager
}

func timeline(prob float64) domain.EscalationTimeline {
	switch {
	case prob > 0.8:
		return domain.TimelineWithinHour
	case prob > 0.6:
		return domain.TimelineWithinFour
	case prob > 0.4:
		return domain.TimelineWithinDay
	default:
		return domain.TimelineLowLikelihood
	}
}

func preventiveActions(pred domain.EscalationPrediction, sig domain.ContentSignal) []string {
	var actions []string
	if sig.Sentiment == domain.SentimentFrustrated {
		actions = append(actions, "acknowledge frustration in first response")
	}
	if pred.ShouldEscalate {
		actions = append(actions, "notify "+string(pred.Target)+" proactively")
	}
	if len(sig.PrioritySignals.BusinessImpact) > 0 {
		actions = append(actions, "confirm business impact and offer a timeline")
	}
	return actions
}
