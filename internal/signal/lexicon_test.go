package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paddockpulse/stablehand/internal/domain"
)

func TestLexiconSentiment(t *testing.T) {
	c := newLexiconClassifier()

	tests := []struct {
		text string
		want domain.Sentiment
	}{
		{"I am fed up with this, it's unacceptable", domain.SentimentFrustrated},
		{"the tracker is broken and the sync failed", domain.SentimentNegative},
		{"thanks, the new dashboard is great", domain.SentimentPositive},
		{"how do I change the paddock name", domain.SentimentNeutral},
	}

	for _, tt := range tests {
		sig := c.classify(tt.text)
		assert.Equal(t, tt.want, sig.Sentiment, "text: %s", tt.text)
	}
}

func TestLexiconComplexityFromTechnicalTerms(t *testing.T) {
	c := newLexiconClassifier()

	low := c.classify("where is my invoice")
	assert.Equal(t, domain.ComplexityLow, low.Complexity)

	medium := c.classify("the gps position looks off")
	assert.Equal(t, domain.ComplexityMedium, medium.Complexity)

	high := c.classify("the api webhook stopped after the firmware sync update")
	assert.Equal(t, domain.ComplexityHigh, high.Complexity)
}

func TestLexiconCategory(t *testing.T) {
	c := newLexiconClassifier()

	assert.Equal(t, domain.CategoryBilling, c.classify("I was charged twice on my subscription").SuggestedCategory)
	assert.Equal(t, domain.CategoryTechnical, c.classify("the tracker won't sync over bluetooth").SuggestedCategory)
	assert.Equal(t, domain.CategoryGeneral, c.classify("hello there").SuggestedCategory)
}

func TestLexiconPrioritySignalBuckets(t *testing.T) {
	c := newLexiconClassifier()

	sig := c.classify("I need this fixed today, I will escalate, we are losing money")
	assert.NotEmpty(t, sig.PrioritySignals.TimeReferences)
	assert.NotEmpty(t, sig.PrioritySignals.EscalationPhrases)
	assert.NotEmpty(t, sig.PrioritySignals.BusinessImpact)
}

func TestLexiconConfidenceCapped(t *testing.T) {
	c := newLexiconClassifier()

	sig := c.classify("urgent asap emergency api webhook gps sensor firmware sync escalate supervisor losing money revenue")
	assert.LessOrEqual(t, sig.Confidence, fallbackMaxConfidence)
	assert.True(t, sig.Degraded)
}

func TestRegister(t *testing.T) {
	assert.Equal(t, "formal", register("Dear support team, kind regards"))
	assert.Equal(t, "agitated", register("FIX THIS NOW!!!"))
	assert.Equal(t, "casual", register("hey quick question"))
}
