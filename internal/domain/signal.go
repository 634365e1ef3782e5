package domain

// Sentiment classifies the emotional tone of a message.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentNegative   Sentiment = "negative"
	SentimentFrustrated Sentiment = "frustrated"
)

// Complexity grades the technical depth of an issue.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// PrioritySignals are phrase buckets that feed routing and escalation scoring.
type PrioritySignals struct {
	TimeReferences    []string `json:"timeReferences,omitempty"`
	EscalationPhrases []string `json:"escalationPhrases,omitempty"`
	BusinessImpact    []string `json:"businessImpact,omitempty"`
}

// ContentSignal is the structured result of analyzing one message.
// It is transient: produced per message, never persisted on its own.
type ContentSignal struct {
	Sentiment         Sentiment       `json:"sentiment"`
	UrgencyIndicators []string        `json:"urgencyIndicators,omitempty"`
	Complexity        Complexity      `json:"technicalComplexity"`
	SuggestedCategory string          `json:"suggestedCategory"`
	Confidence        float64         `json:"confidence"`
	LanguageRegister  string          `json:"languageRegister,omitempty"`
	PrioritySignals   PrioritySignals `json:"prioritySignals"`

	// Degraded is set when the signal came from the local fallback
	// classifier rather than the analysis provider.
	Degraded bool `json:"degraded,omitempty"`
}
