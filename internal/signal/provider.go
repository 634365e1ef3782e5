package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paddockpulse/stablehand/internal/domain"
)

// HTTPProvider calls the hosted content-analysis endpoint. The endpoint
// wraps a language model; this client only knows the request/response
// contract, not the inference behind it.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPProvider creates a provider for the given analysis endpoint.
func NewHTTPProvider(endpoint, apiKey, model string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (p *HTTPProvider) Name() string { return "http" }

type classifyBody struct {
	Model   string   `json:"model,omitempty"`
	Text    string   `json:"text"`
	Context []string `json:"context,omitempty"`
}

// Classify posts the text and conversation context and parses the signal
// JSON from the response body.
func (p *HTTPProvider) Classify(ctx context.Context, req ClassifyRequest) (domain.ContentSignal, error) {
	payload, err := json.Marshal(classifyBody{
		Model:   p.model,
		Text:    req.Text,
		Context: req.Context,
	})
	if err != nil {
		return domain.ContentSignal{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		p.endpoint+"/v1/analyze", strings.NewReader(string(payload)))
	if err != nil {
		return domain.ContentSignal{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return domain.ContentSignal{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ContentSignal{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.ContentSignal{}, fmt.Errorf("analysis API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var sig domain.ContentSignal
	if err := json.Unmarshal(respBody, &sig); err != nil {
		return domain.ContentSignal{}, fmt.Errorf("failed to parse signal: %w", err)
	}
	return sig, nil
}
