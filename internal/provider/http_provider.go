package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/counttalita/ScamShield-sub000/internal/riskcache"
)

// HTTPProvider is a Checker backed by a remote HTTP risk service.
// It POSTs the number to the provider endpoint and expects a JSON body
// carrying at least riskLevel, confidence, and action. Those keys are
// validated at this boundary so untrusted provider payloads never leak
// malformed values into the aggregation.
type HTTPProvider struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider client for the given endpoint.
// The per-call timeout is enforced by the aggregator through context,
// so the underlying client only carries a generous upper bound.
func NewHTTPProvider(endpoint, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// providerError represents an error response from a risk provider.
type providerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// providerPayload is the wire shape of a provider verdict.
type providerPayload struct {
	RiskLevel  *string  `json:"riskLevel"`
	Confidence *float64 `json:"confidence"`
	Action     *string  `json:"action"`
}

// CheckNumber asks the remote provider for a verdict on one number.
func (p *HTTPProvider) CheckNumber(ctx context.Context, number string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"number": number})
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var perr providerError
		if json.Unmarshal(respBody, &perr) == nil && perr.Message != "" {
			return nil, fmt.Errorf("provider error (%d): %s", resp.StatusCode, perr.Message)
		}
		return nil, fmt.Errorf("provider error (%d): %s", resp.StatusCode, string(respBody))
	}

	var payload providerPayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resultFromPayload(payload)
}

// resultFromPayload validates the required verdict keys.
func resultFromPayload(payload providerPayload) (*Result, error) {
	if payload.RiskLevel == nil {
		return nil, fmt.Errorf("provider response missing riskLevel")
	}
	if payload.Confidence == nil {
		return nil, fmt.Errorf("provider response missing confidence")
	}
	if payload.Action == nil {
		return nil, fmt.Errorf("provider response missing action")
	}

	if *payload.Confidence < 0 || *payload.Confidence > 1 {
		return nil, fmt.Errorf("provider confidence %f out of range", *payload.Confidence)
	}
	if *payload.Action != ActionAllow && *payload.Action != ActionBlock {
		return nil, fmt.Errorf("provider action %q not recognized", *payload.Action)
	}

	return &Result{
		RiskLevel:  riskcache.ParseRiskLevel(*payload.RiskLevel),
		Confidence: *payload.Confidence,
		Action:     *payload.Action,
	}, nil
}
