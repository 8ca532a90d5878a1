package provider

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/counttalita/ScamShield-sub000/internal/security"
)

// Handler provides HTTP endpoints for provider administration.
type Handler struct {
	registry *Registry
}

// NewHandler creates a new provider handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes sets up public (read-only) provider routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/providers", h.ListProviders)
	r.GET("/providers/:name/stats", h.GetProviderStats)
}

// RegisterAdminRoutes sets up admin-only provider routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/providers", h.RegisterProvider)
	r.POST("/providers/:name/enable", h.EnableProvider)
	r.POST("/providers/:name/disable", h.DisableProvider)
}

// ListProviders handles GET /v1/providers
func (h *Handler) ListProviders(c *gin.Context) {
	providers := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"providers": providers,
		"count":     len(providers),
	})
}

// GetProviderStats handles GET /v1/providers/:name/stats
func (h *Handler) GetProviderStats(c *gin.Context) {
	name := c.Param("name")

	stats, err := h.registry.StatsFor(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No provider registered under this name",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider": name,
		"stats":    stats,
	})
}

// RegisterProvider handles POST /v1/admin/providers
func (h *Handler) RegisterProvider(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Name and endpoint are required",
		})
		return
	}

	// Operator-supplied URLs go through the SSRF guard before we ever
	// dial them from the aggregator.
	if err := security.ValidateEndpointURL(req.Endpoint); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_endpoint",
			"message": err.Error(),
		})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	// Zero timeout lets the registry apply its configured default.
	var timeout time.Duration
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	binding := Binding{
		Name:     req.Name,
		Weight:   req.Weight,
		Priority: req.Priority,
		Timeout:  timeout,
		Enabled:  enabled,
		Endpoint: req.Endpoint,
	}

	apiKey := c.GetHeader("X-Provider-Key")
	if err := h.registry.Register(binding, NewHTTPProvider(req.Endpoint, apiKey)); err != nil {
		if errors.Is(err, ErrProviderExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "already_exists",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	// Re-read so the response reflects registry-applied defaults.
	if stored, err := h.registry.Get(req.Name); err == nil {
		binding = stored
	}
	c.JSON(http.StatusCreated, gin.H{"provider": binding})
}

// EnableProvider handles POST /v1/admin/providers/:name/enable
func (h *Handler) EnableProvider(c *gin.Context) {
	h.setEnabled(c, true)
}

// DisableProvider handles POST /v1/admin/providers/:name/disable
func (h *Handler) DisableProvider(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *Handler) setEnabled(c *gin.Context, enabled bool) {
	name := c.Param("name")

	if err := h.registry.SetEnabled(name, enabled); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No provider registered under this name",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider": name,
		"enabled":  enabled,
	})
}
