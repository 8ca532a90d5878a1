package provider

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func providerRouter() (*gin.Engine, *Registry) {
	gin.SetMode(gin.TestMode)
	registry := NewRegistry()
	handler := NewHandler(registry)

	r := gin.New()
	v1 := r.Group("/v1")
	handler.RegisterRoutes(v1)
	admin := r.Group("/v1/admin")
	handler.RegisterAdminRoutes(admin)
	return r, registry
}

func TestRegisterProvider(t *testing.T) {
	r, registry := providerRouter()

	body, _ := json.Marshal(RegisterRequest{
		Name:      "truecaller",
		Endpoint:  "https://risk.example.com/check",
		Weight:    2.0,
		Priority:  1,
		TimeoutMs: 3000,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/admin/providers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	binding, err := registry.Get("truecaller")
	if err != nil {
		t.Fatalf("provider not registered: %v", err)
	}
	if !binding.Enabled {
		t.Error("provider should default to enabled")
	}
	if binding.Timeout.Milliseconds() != 3000 {
		t.Errorf("expected 3000ms timeout, got %v", binding.Timeout)
	}
}

func TestRegisterProvider_RejectsUnsafeEndpoint(t *testing.T) {
	r, _ := providerRouter()

	for _, endpoint := range []string{
		"http://localhost:8080/check",
		"http://169.254.169.254/latest/meta-data",
		"ftp://example.com/check",
	} {
		body, _ := json.Marshal(RegisterRequest{Name: "bad", Endpoint: endpoint})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/v1/admin/providers", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("endpoint %q: expected 400, got %d", endpoint, w.Code)
		}
	}
}

func TestRegisterProvider_Duplicate(t *testing.T) {
	r, registry := providerRouter()
	_ = registry.Register(Binding{Name: "truecaller", Enabled: true}, &fakeChecker{})

	body, _ := json.Marshal(RegisterRequest{Name: "truecaller", Endpoint: "https://risk.example.com/check"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/admin/providers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestEnableDisableProvider(t *testing.T) {
	r, registry := providerRouter()
	_ = registry.Register(Binding{Name: "truecaller", Enabled: true}, &fakeChecker{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/v1/admin/providers/truecaller/disable", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if registry.EnabledCount() != 0 {
		t.Error("provider should be disabled")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/v1/admin/providers/truecaller/enable", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if registry.EnabledCount() != 1 {
		t.Error("provider should be enabled")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/v1/admin/providers/missing/enable", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown provider, got %d", w.Code)
	}
}

func TestListProvidersAndStats(t *testing.T) {
	r, registry := providerRouter()
	_ = registry.Register(Binding{Name: "truecaller", Enabled: true}, &fakeChecker{})
	registry.RecordCall("truecaller", true, 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/providers", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var listResp struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &listResp)
	if listResp.Count != 1 {
		t.Errorf("expected 1 provider, got %d", listResp.Count)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/providers/truecaller/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var statsResp struct {
		Stats Stats `json:"stats"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &statsResp)
	if statsResp.Stats.Calls != 1 {
		t.Errorf("expected 1 recorded call, got %d", statsResp.Stats.Calls)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/providers/missing/stats", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRegisterProviderConfiguredDefaultTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := NewRegistry()
	registry.SetDefaultTimeout(2500 * time.Millisecond)
	handler := NewHandler(registry)

	r := gin.New()
	admin := r.Group("/v1/admin")
	handler.RegisterAdminRoutes(admin)

	body, _ := json.Marshal(RegisterRequest{
		Name:     "hiya",
		Endpoint: "https://risk.example.com/check",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/admin/providers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	binding, err := registry.Get("hiya")
	if err != nil {
		t.Fatalf("provider not registered: %v", err)
	}
	if binding.Timeout != 2500*time.Millisecond {
		t.Errorf("expected configured 2.5s default, got %v", binding.Timeout)
	}

	// The 201 body reflects the applied default, not the zero value.
	var resp struct {
		Provider Binding `json:"provider"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Provider.Timeout != 2500*time.Millisecond {
		t.Errorf("response timeout = %v, want 2.5s", resp.Provider.Timeout)
	}
}
