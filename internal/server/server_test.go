package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/counttalita/ScamShield-sub000/internal/config"
	"github.com/counttalita/ScamShield-sub000/internal/contacts"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		Env:                 "development",
		LogLevel:            "error",
		DefaultCountryCode:  "+27",
		CacheMaxEntries:     1000,
		ScamTTLDays:         30,
		SpamTTLDays:         7,
		AggregationStrategy: "highest_risk",
		ProviderTimeout:     time.Second,
		CheckTimeout:        5 * time.Second,
		SilenceUnknown:      false,
		AdminSecret:         "test-admin-secret",
		RateLimitRPM:        10000,
	}
}

// newTestServer creates a server with in-memory storage
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig(), WithContacts(contacts.NewStaticResolver(map[string]string{
		"+27831112222": "Mom",
	})))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessBeforeRun(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Ready only flips after Run starts the listeners.
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before Run, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// End-to-end flow tests
// ---------------------------------------------------------------------------

func TestCheckCallFlow(t *testing.T) {
	s := newTestServer(t)

	// Report a scam number first.
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/numbers/report",
		strings.NewReader(`{"number": "+27866600666", "category": "scam", "confidence": 0.9}`))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("report: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Checking the same number now auto-rejects from the cache.
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/calls/check",
		strings.NewReader(`{"number": "086 660 0666"}`))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("check: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Verdict struct {
			Action string `json:"action"`
			State  string `json:"state"`
		} `json:"verdict"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Verdict.Action != "auto_reject" {
		t.Errorf("action = %s, want auto_reject", resp.Verdict.Action)
	}
	if resp.Verdict.State != "cache_scam" {
		t.Errorf("state = %s, want cache_scam", resp.Verdict.State)
	}
}

func TestContactMatchFlow(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/calls/check",
		strings.NewReader(`{"number": "+27831112222"}`))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Verdict struct {
			Action string `json:"action"`
			State  string `json:"state"`
		} `json:"verdict"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Verdict.Action != "allow" || resp.Verdict.State != "contact_match" {
		t.Errorf("got %s/%s, want allow/contact_match", resp.Verdict.Action, resp.Verdict.State)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)

	// Resolve one call so the counters move.
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/calls/check",
		strings.NewReader(`{"number": "+27821234567"}`))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("check: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/stats", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	calls, ok := resp["calls"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing calls section: %v", resp)
	}
	if calls["allowed"] != float64(1) {
		t.Errorf("allowed = %v, want 1", calls["allowed"])
	}
	if _, ok := resp["cache"]; !ok {
		t.Error("missing cache section")
	}
	if _, ok := resp["sessions"]; !ok {
		t.Error("missing sessions section")
	}
}

// ---------------------------------------------------------------------------
// Admin gating tests
// ---------------------------------------------------------------------------

func TestAdminRequiresSecret(t *testing.T) {
	s := newTestServer(t)
	body := `{"name": "truecaller", "endpoint": "https://api.truecaller.example/check"}`

	// No secret: rejected.
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/admin/providers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no secret: expected 401, got %d", w.Code)
	}

	// Wrong secret: rejected.
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/admin/providers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "wrong")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: expected 401, got %d", w.Code)
	}

	// Correct secret: accepted.
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/admin/providers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "test-admin-secret")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("correct secret: expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminDisabledWithoutSecretConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.AdminSecret = ""
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/admin/providers",
		strings.NewReader(`{"name": "x", "endpoint": "https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 with admin disabled, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Misc endpoint tests
// ---------------------------------------------------------------------------

func TestInfoEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ScamShield") {
		t.Error("info response should name the service")
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated X-Request-ID header")
	}

	// A provided request ID is echoed back.
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	s.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %s, want req-123", got)
	}
}

func TestInvalidPhoneParamRejected(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/numbers/not-a-number!", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed number param, got %d", w.Code)
	}
}
