package signal

import (
	"strings"

	"github.com/paddockpulse/stablehand/internal/domain"
)

// fallbackMaxConfidence caps lexicon signals so downstream scoring can tell
// them apart from provider output.
const fallbackMaxConfidence = 0.6

// lexiconClassifier is the deterministic local fallback. All matching is
// case-insensitive substring matching over fixed phrase lists.
type lexiconClassifier struct {
	frustration []string
	negative    []string
	positive    []string
	urgency     []string
	technical   []string
	escalation  []string
	businessHit []string
	timeRefs    []string
	categories  map[string][]string
}

func newLexiconClassifier() *lexiconClassifier {
	return &lexiconClassifier{
		frustration: []string{
			"furious", "ridiculous", "unacceptable", "fed up", "frustrated",
			"angry", "worst", "useless", "sick of", "had enough",
		},
		negative: []string{
			"not working", "broken", "error", "failed", "fails", "problem",
			"issue", "wrong", "disappointed", "terrible", "bad",
		},
		positive: []string{
			"thanks", "thank you", "great", "love", "perfect", "awesome",
			"works well", "brilliant",
		},
		urgency: []string{
			"urgent", "asap", "immediately", "right now", "emergency",
			"critical", "quickly", "straight away",
		},
		technical: []string{
			"api", "webhook", "gps", "sensor", "firmware", "sync",
			"integration", "export", "bluetooth", "tracker", "calibration",
			"login", "authentication", "server", "database",
		},
		escalation: []string{
			"speak to a manager", "speak to your manager", "supervisor",
			"escalate", "complaint", "lawyer", "legal action",
			"cancel my subscription",
		},
		businessHit: []string{
			"losing money", "revenue", "my clients", "our clients",
			"business critical", "whole yard", "competition season",
		},
		timeRefs: []string{
			"today", "tomorrow", "this week", "within the hour", "hours",
			"minutes", "deadline", "before the weekend",
		},
		categories: map[string][]string{
			domain.CategoryBilling: {
				"invoice", "charge", "charged", "payment", "refund",
				"subscription", "billing", "price", "plan",
			},
			domain.CategoryTechnical: {
				"gps", "sensor", "tracker", "firmware", "sync", "api",
				"bluetooth", "app crash", "not connecting", "calibration",
			},
			domain.CategoryAISupport: {
				"insight", "ai", "prediction", "analysis", "recommendation",
				"report", "dashboard",
			},
			"account": {
				"password", "login", "account", "email address", "sign in",
			},
		},
	}
}

// classify produces a degraded ContentSignal from lexicon matches alone.
func (c *lexiconClassifier) classify(text string) domain.ContentSignal {
	lower := strings.ToLower(text)

	sig := domain.ContentSignal{
		Sentiment:         c.sentiment(lower),
		UrgencyIndicators: matches(lower, c.urgency),
		SuggestedCategory: c.category(lower),
		LanguageRegister:  register(text),
		PrioritySignals: domain.PrioritySignals{
			TimeReferences:    matches(lower, c.timeRefs),
			EscalationPhrases: matches(lower, c.escalation),
			BusinessImpact:    matches(lower, c.businessHit),
		},
		Degraded: true,
	}

	techHits := len(matches(lower, c.technical))
	switch {
	case techHits >= 3:
		sig.Complexity = domain.ComplexityHigh
	case techHits >= 1:
		sig.Complexity = domain.ComplexityMedium
	default:
		sig.Complexity = domain.ComplexityLow
	}

	// More lexicon evidence means more confidence, capped below provider
	// territory.
	hits := techHits + len(sig.UrgencyIndicators) +
		len(sig.PrioritySignals.EscalationPhrases) +
		len(sig.PrioritySignals.BusinessImpact)
	sig.Confidence = 0.35 + 0.05*float64(hits)
	if sig.Confidence > fallbackMaxConfidence {
		sig.Confidence = fallbackMaxConfidence
	}

	return sig
}

func (c *lexiconClassifier) sentiment(lower string) domain.Sentiment {
	if len(matches(lower, c.frustration)) > 0 {
		return domain.SentimentFrustrated
	}
	neg := len(matches(lower, c.negative))
	pos := len(matches(lower, c.positive))
	switch {
	case neg > pos:
		return domain.SentimentNegative
	case pos > 0:
		return domain.SentimentPositive
	default:
		return domain.SentimentNeutral
	}
}

func (c *lexiconClassifier) category(lower string) string {
	best := domain.CategoryGeneral
	bestHits := 0
	for cat, words := range c.categories {
		if n := len(matches(lower, words)); n > bestHits ||
			(n == bestHits && n > 0 && cat < best) {
			best = cat
			bestHits = n
		}
	}
	return best
}

// register takes a rough guess at tone from surface features.
func register(text string) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "dear ") || strings.Contains(lower, "kind regards") ||
		strings.Contains(lower, "to whom it may concern") {
		return "formal"
	}
	if strings.Contains(text, "!!!") || strings.Contains(lower, "omg") ||
		strings.Contains(lower, "wtf") {
		return "agitated"
	}
	return "casual"
}

func matches(lower string, phrases []string) []string {
	var found []string
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			found = append(found, p)
		}
	}
	return found
}
