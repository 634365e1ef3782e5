// Package signal turns free-text support messages into structured
// ContentSignals. Classification is delegated to an external analysis
// provider; a deterministic lexicon classifier takes over whenever the
// provider is missing, unreachable, or returns garbage, so Analyze never
// fails outright.
package signal

import (
	"context"
	"fmt"

	"github.com/paddockpulse/stablehand/internal/domain"
	"github.com/paddockpulse/stablehand/internal/logging"
)

// ClassifyRequest is the input to an analysis provider.
type ClassifyRequest struct {
	Text    string   `json:"text"`
	Context []string `json:"context,omitempty"`
}

// Provider is an external content-analysis backend.
type Provider interface {
	// Classify analyzes text and returns a structured signal.
	Classify(ctx context.Context, req ClassifyRequest) (domain.ContentSignal, error)

	// Name returns the provider name (e.g. "http", "mock").
	Name() string
}

// Analyzer produces ContentSignals, falling back to the local lexicon
// classifier when the provider cannot be used.
type Analyzer struct {
	provider Provider
	lexicon  *lexiconClassifier
	log      *logging.Logger
}

// NewAnalyzer creates an analyzer. A nil provider means lexicon-only.
func NewAnalyzer(provider Provider, log *logging.Logger) *Analyzer {
	return &Analyzer{
		provider: provider,
		lexicon:  newLexiconClassifier(),
		log:      log.Sub("signal"),
	}
}

// Analyze classifies one message. The returned signal is always usable;
// reduced trust is expressed through Confidence and the Degraded flag,
// never through an error.
func (a *Analyzer) Analyze(ctx context.Context, text string, convContext []string) domain.ContentSignal {
	if a.provider == nil {
		return a.lexicon.classify(text)
	}

	sig, err := a.provider.Classify(ctx, ClassifyRequest{Text: text, Context: convContext})
	if err != nil {
		a.log.Warn().Err(err).
			Str("provider", a.provider.Name()).
			Msg("analysis provider unavailable, using lexicon fallback")
		return a.lexicon.classify(text)
	}

	if err := normalize(&sig); err != nil {
		a.log.Warn().Err(err).
			Str("provider", a.provider.Name()).
			Msg("malformed provider signal, using lexicon fallback")
		return a.lexicon.classify(text)
	}

	return sig
}

// normalize validates a provider signal in place. A signal that cannot be
// repaired returns an error, which sends the caller to the fallback path.
func normalize(sig *domain.ContentSignal) error {
	switch sig.Sentiment {
	case domain.SentimentPositive, domain.SentimentNeutral,
		domain.SentimentNegative, domain.SentimentFrustrated:
	default:
		return fmt.Errorf("unknown sentiment %q", sig.Sentiment)
	}

	switch sig.Complexity {
	case domain.ComplexityLow, domain.ComplexityMedium, domain.ComplexityHigh:
	default:
		return fmt.Errorf("unknown complexity %q", sig.Complexity)
	}

	if sig.Confidence < 0 {
		sig.Confidence = 0
	}
	if sig.Confidence > 1 {
		sig.Confidence = 1
	}
	if sig.SuggestedCategory == "" {
		sig.SuggestedCategory = domain.CategoryGeneral
	}
	sig.Degraded = false
	return nil
}
