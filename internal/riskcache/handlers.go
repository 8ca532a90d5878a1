package riskcache

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/counttalita/ScamShield-sub000/internal/phone"
	"github.com/counttalita/ScamShield-sub000/internal/validation"
)

// Broadcaster pushes report events to realtime subscribers.
type Broadcaster interface {
	BroadcastNumberReported(report map[string]interface{})
}

// Handler provides HTTP endpoints for risk cache operations.
type Handler struct {
	cache      *TieredCache
	normalizer *phone.Normalizer
	broadcast  Broadcaster
}

// NewHandler creates a new risk cache handler.
func NewHandler(cache *TieredCache, normalizer *phone.Normalizer, broadcast Broadcaster) *Handler {
	return &Handler{cache: cache, normalizer: normalizer, broadcast: broadcast}
}

// RegisterRoutes sets up public risk cache routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/numbers/:number", h.LookupNumber)
	r.POST("/numbers/report", h.ReportNumber)
	r.GET("/whitelist/:number", h.GetWhitelistEntry)
	r.POST("/whitelist", h.AddToWhitelist)
	r.DELETE("/whitelist/:number", h.RemoveFromWhitelist)
}

// LookupNumber handles GET /v1/numbers/:number
func (h *Handler) LookupNumber(c *gin.Context) {
	number := h.normalizer.Normalize(c.Param("number"))

	result := h.cache.Lookup(c.Request.Context(), number)
	c.JSON(http.StatusOK, gin.H{
		"number":  number,
		"outcome": result.Outcome,
		"record":  result.Record,
	})
}

// ReportNumber handles POST /v1/numbers/report
func (h *Handler) ReportNumber(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Number is required",
		})
		return
	}

	if verrs := validation.Validate(
		validation.ValidPhone("number", req.Number),
		validation.ValidConfidence("confidence", req.Confidence),
	); len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": verrs.Error(),
		})
		return
	}

	number := h.normalizer.Normalize(req.Number)
	confidence := req.Confidence
	if confidence == 0 {
		confidence = 0.5 // A single unqualified report is weak evidence
	}

	var tier Tier
	switch req.Category {
	case "scam":
		tier = TierScam
		h.cache.PutScam(c.Request.Context(), number, RiskHigh, confidence, "user_report")
	case "spam", "":
		tier = TierSpam
		h.cache.PutSpam(c.Request.Context(), number, RiskMedium, confidence, "user_report")
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "category must be scam or spam",
		})
		return
	}

	if h.broadcast != nil {
		h.broadcast.BroadcastNumberReported(map[string]interface{}{
			"number":   number,
			"category": string(tier),
		})
	}

	c.JSON(http.StatusCreated, gin.H{
		"number":   number,
		"category": tier,
		"message":  "report recorded",
	})
}

// GetWhitelistEntry handles GET /v1/whitelist/:number
func (h *Handler) GetWhitelistEntry(c *gin.Context) {
	number := h.normalizer.Normalize(c.Param("number"))

	record, err := h.cache.Get(c.Request.Context(), TierWhitelist, number)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Number is not whitelisted",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record})
}

// AddToWhitelist handles POST /v1/whitelist
func (h *Handler) AddToWhitelist(c *gin.Context) {
	var req WhitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Number is required",
		})
		return
	}

	if !validation.IsValidPhone(req.Number) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_number",
			"message": "number must be a phone number (digits with optional + prefix)",
		})
		return
	}

	number := h.normalizer.Normalize(req.Number)
	source := req.Source
	if source == "" {
		source = "manual"
	}

	h.cache.AddToWhitelist(c.Request.Context(), number, source)

	c.JSON(http.StatusCreated, gin.H{
		"number":  number,
		"message": "number whitelisted",
	})
}

// RemoveFromWhitelist handles DELETE /v1/whitelist/:number
func (h *Handler) RemoveFromWhitelist(c *gin.Context) {
	number := h.normalizer.Normalize(c.Param("number"))

	if !h.cache.RemoveFromWhitelist(c.Request.Context(), number) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Number is not whitelisted",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"number":  number,
		"message": "number removed from whitelist",
	})
}
