package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config holds the configuration for connecting to the ScamShield API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	APIKey string // Optional API key for admin-gated endpoints
}

// ShieldClient is a pure HTTP client for the ScamShield API.
type ShieldClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewShieldClient creates a new client for the ScamShield API.
func NewShieldClient(cfg Config) *ShieldClient {
	return &ShieldClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *ShieldClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// CheckNumber resolves an incoming call through the decision engine.
func (c *ShieldClient) CheckNumber(ctx context.Context, number string, silenceUnknown *bool) (json.RawMessage, error) {
	body := map[string]any{"number": number}
	if silenceUnknown != nil {
		body["silenceUnknown"] = *silenceUnknown
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/calls/check", nil, body)
}

// LookupNumber queries the risk cache without triggering provider calls.
func (c *ShieldClient) LookupNumber(ctx context.Context, number string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/numbers/"+url.PathEscape(number), nil, nil)
}

// ReportNumber files a user report against a number.
func (c *ShieldClient) ReportNumber(ctx context.Context, number, category string, confidence float64, comment string) (json.RawMessage, error) {
	body := map[string]any{
		"number": number,
	}
	if category != "" {
		body["category"] = category
	}
	if confidence > 0 {
		body["confidence"] = confidence
	}
	if comment != "" {
		body["comment"] = comment
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/numbers/report", nil, body)
}

// AddToWhitelist marks a number as always-safe.
func (c *ShieldClient) AddToWhitelist(ctx context.Context, number string) (json.RawMessage, error) {
	body := map[string]any{"number": number}
	return c.doRequest(ctx, http.MethodPost, "/v1/whitelist", nil, body)
}

// RemoveFromWhitelist removes a number from the whitelist.
func (c *ShieldClient) RemoveFromWhitelist(ctx context.Context, number string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodDelete, "/v1/whitelist/"+url.PathEscape(number), nil, nil)
}

// GetStats returns shield-wide statistics.
func (c *ShieldClient) GetStats(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/stats", nil, nil)
}
