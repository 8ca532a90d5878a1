package decision

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Broadcaster pushes resolved verdicts to realtime subscribers.
type Broadcaster interface {
	BroadcastCallChecked(verdict map[string]interface{})
}

// Handler provides HTTP endpoints for call resolution.
type Handler struct {
	engine    *Engine
	broadcast Broadcaster
}

// NewHandler creates a new decision handler.
func NewHandler(engine *Engine, broadcast Broadcaster) *Handler {
	return &Handler{engine: engine, broadcast: broadcast}
}

// RegisterRoutes sets up call resolution routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/calls/check", h.CheckCall)
}

// CheckCall handles POST /v1/calls/check
func (h *Handler) CheckCall(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Number is required",
		})
		return
	}

	verdict, err := h.engine.Resolve(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrMissingNumber) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
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

	if h.broadcast != nil {
		h.broadcast.BroadcastCallChecked(map[string]interface{}{
			"number":     verdict.Number,
			"action":     string(verdict.Action),
			"riskLevel":  string(verdict.RiskLevel),
			"confidence": verdict.Confidence,
		})
	}

	resp := gin.H{"verdict": verdict}
	if req.SessionID != "" {
		resp["sessionId"] = req.SessionID
	}
	c.JSON(http.StatusOK, resp)
}
