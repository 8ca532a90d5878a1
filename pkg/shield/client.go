package shield

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

// Client talks to a ScamShield deployment.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithAPIKey sets a bearer token sent on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a ScamShield API client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckCall resolves an incoming call and returns the verdict.
func (c *Client) CheckCall(ctx context.Context, req CheckRequest) (*Verdict, error) {
	var resp struct {
		Verdict *Verdict `json:"verdict"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/calls/check", req, &resp); err != nil {
		return nil, err
	}
	if resp.Verdict == nil {
		return nil, fmt.Errorf("scamshield: response carried no verdict")
	}
	return resp.Verdict, nil
}

// LookupNumber queries the risk cache without triggering provider calls.
func (c *Client) LookupNumber(ctx context.Context, number string) (*LookupResult, error) {
	var result LookupResult
	if err := c.do(ctx, http.MethodGet, "/v1/numbers/"+url.PathEscape(number), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReportNumber files a scam or spam report.
func (c *Client) ReportNumber(ctx context.Context, req ReportRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/numbers/report", req, nil)
}

// AddToWhitelist marks a number as always safe.
func (c *Client) AddToWhitelist(ctx context.Context, number string) error {
	body := map[string]string{"number": number}
	return c.do(ctx, http.MethodPost, "/v1/whitelist", body, nil)
}

// RemoveFromWhitelist removes a whitelist entry.
func (c *Client) RemoveFromWhitelist(ctx context.Context, number string) error {
	return c.do(ctx, http.MethodDelete, "/v1/whitelist/"+url.PathEscape(number), nil, nil)
}

// CreateSession starts tracking a call session.
func (c *Client) CreateSession(ctx context.Context, phoneNumber, direction string) (*Session, error) {
	body := map[string]string{
		"phoneNumber": phoneNumber,
		"direction":   direction,
	}
	var resp struct {
		Session *Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", body, &resp); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

// CloseSession ends a tracked session.
func (c *Client) CloseSession(ctx context.Context, sessionID string) (*Session, error) {
	var resp struct {
		Session *Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(sessionID)+"/close", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Session, nil
}

// Stats returns shield-wide statistics as raw JSON sections.
func (c *Client) Stats(ctx context.Context) (map[string]json.RawMessage, error) {
	var out map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do runs one API request, decoding a JSON response into out when it is
// non-nil. Error responses decode into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("scamshield: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("scamshield: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scamshield: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("scamshield: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Code = "unexpected_error"
			apiErr.Message = string(data)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("scamshield: decode response: %w", err)
	}
	return nil
}
