package signal

import (
	"context"

	"github.com/paddockpulse/stablehand/internal/domain"
)

// MockProvider is a test double for Provider.
type MockProvider struct {
	ProviderName string
	ClassifyFunc func(ctx context.Context, req ClassifyRequest) (domain.ContentSignal, error)
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) Classify(ctx context.Context, req ClassifyRequest) (domain.ContentSignal, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}
	return domain.ContentSignal{
		Sentiment:         domain.SentimentNeutral,
		Complexity:        domain.ComplexityLow,
		SuggestedCategory: domain.CategoryGeneral,
		Confidence:        0.9,
	}, nil
}
