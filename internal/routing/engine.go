// Package routing scores support staff against content signals and picks
// an assignee.
package routing

import (
	"fmt"
	"sort"
	"time"

	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
)

// Score composition weights. They sum to 1 so matchScore stays in [0, 1].
const (
	specialtyWeight  = 0.5
	complexityWeight = 0.3
	loadWeight       = 0.2
)

// Engine ranks candidates for a ticket. Route is a pure function of its
// inputs; the engine itself only carries a logger.
type Engine struct {
	log *logging.Logger
}

// NewEngine creates a routing engine.
func NewEngine(log *logging.Logger) *Engine {
	return &Engine{log: log.Sub("routing")}
}

// Route scores every available candidate and returns a decision ranking
// them. An empty pool of available candidates returns
// domain.ErrNoCandidateAvailable; the caller must queue the work item.
func (e *Engine) Route(ticket domain.Ticket, sig domain.ContentSignal, pool []domain.StaffMember) (domain.RoutingDecision, error) {
	type scored struct {
		member domain.StaffMember
		score  float64
	}

	var candidates []scored
	for _, m := range pool {
		if !m.Available() {
			continue
		}
		candidates = append(candidates, scored{member: m, score: matchScore(ticket, sig, m)})
	}

	if len(candidates) == 0 {
		return domain.RoutingDecision{}, domain.ErrNoCandidateAvailable
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].member.CurrentWorkload != candidates[j].member.CurrentWorkload {
			return candidates[i].member.CurrentWorkload < candidates[j].member.CurrentWorkload
		}
		return candidates[i].member.ID < candidates[j].member.ID
	})

	top := candidates[0]

	decision := domain.RoutingDecision{
		AssigneeID:              top.member.ID,
		AssigneeName:            top.member.Name,
		Reason:                  reason(ticket, top.member),
		Confidence:              top.score,
		EscalationPath:          escalationPath(top.member.Role),
		EstimatedResolutionTime: estimateResolution(top.member.MeanResponseTime, sig),
		SuggestedPriority:       SuggestPriority(sig),
	}

	for _, alt := range candidates[1:] {
		decision.Alternates = append(decision.Alternates, domain.RankedCandidate{
			StaffID:    alt.member.ID,
			Name:       alt.member.Name,
			MatchScore: alt.score,
		})
		if len(decision.Alternates) == 2 {
			break
		}
	}

	e.log.Debug().
		Str("ticket", ticket.ID).
		Str("assignee", decision.AssigneeID).
		Float64("score", top.score).
		Int("pool", len(candidates)).
		Msg("routed ticket")

	return decision, nil
}

// matchScore combines specialty fit, skill/complexity fit, and remaining
// capacity into a single [0, 1] score.
func matchScore(ticket domain.Ticket, sig domain.ContentSignal, m domain.StaffMember) float64 {
	specialty := 0.0
	if m.HasSpecialty(ticket.Category) {
		specialty = 1.0
	}

	load := 0.0
	if m.MaxCapacity > 0 {
		load = float64(m.CurrentWorkload) / float64(m.MaxCapacity)
	}

	return specialtyWeight*specialty +
		complexityWeight*complexityMatch(sig.Complexity, m.SkillLevel) +
		loadWeight*(1-load)
}

// complexityMatch is 1 for an exact-or-better skill pairing, 0.5 otherwise.
func complexityMatch(c domain.Complexity, skill domain.SkillLevel) float64 {
	switch c {
	case domain.ComplexityHigh:
		if skill == domain.SkillExpert {
			return 1.0
		}
	case domain.ComplexityMedium:
		if skill == domain.SkillSenior || skill == domain.SkillExpert {
			return 1.0
		}
	case domain.ComplexityLow:
		return 1.0
	}
	return 0.5
}

// estimateResolution starts from the candidate's mean response time and
// applies the signal multipliers in a fixed order: complexity, sentiment,
// urgency volume.
func estimateResolution(mean time.Duration, sig domain.ContentSignal) time.Duration {
	est := float64(mean)

	switch sig.Complexity {
	case domain.ComplexityHigh:
		est *= 2
	case domain.ComplexityLow:
		est *= 0.5
	}

	if sig.Sentiment == domain.SentimentFrustrated {
		est *= 1.5
	}

	if len(sig.UrgencyIndicators) > 2 {
		est *= 0.7
	}

	return time.Duration(est)
}

// SuggestPriority derives a ticket priority from signal thresholds.
func SuggestPriority(sig domain.ContentSignal) domain.Priority {
	urgency := len(sig.UrgencyIndicators)

	switch {
	case sig.Sentiment == domain.SentimentFrustrated || urgency > 3:
		return domain.PriorityCritical
	case urgency > 1 || len(sig.PrioritySignals.BusinessImpact) > 0:
		return domain.PriorityHigh
	case sig.Sentiment == domain.SentimentNegative || urgency > 0:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// escalationPath is the ordered role chain above the assignee.
func escalationPath(role domain.StaffRole) []domain.StaffRole {
	switch role {
	case domain.RoleSupportAgent:
		return []domain.StaffRole{domain.RoleSeniorSupport, domain.RoleSupportManager}
	case domain.RoleSeniorSupport, domain.RoleTechnicalSpecialist:
		return []domain.StaffRole{domain.RoleSupportManager}
	default:
		return nil
	}
}

func reason(ticket domain.Ticket, m domain.StaffMember) string {
	if m.HasSpecialty(ticket.Category) {
		return fmt.Sprintf("%s specializes in %s and has capacity (%d/%d)",
			m.Name, ticket.Category, m.CurrentWorkload, m.MaxCapacity)
	}
	return fmt.Sprintf("%s is the best available match for %s (%d/%d)",
		m.Name, ticket.Category, m.CurrentWorkload, m.MaxCapacity)
}
