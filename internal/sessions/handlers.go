package sessions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Broadcaster pushes session lifecycle events to realtime subscribers.
type Broadcaster interface {
	BroadcastSessionClosed(session map[string]interface{})
}

// Handler provides HTTP endpoints for call session tracking.
type Handler struct {
	tracker   *Tracker
	broadcast Broadcaster
}

// NewHandler creates a new sessions handler.
func NewHandler(tracker *Tracker, broadcast Broadcaster) *Handler {
	return &Handler{tracker: tracker, broadcast: broadcast}
}

// RegisterRoutes sets up session routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/stats", h.GetStatistics)
	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/connect", h.Connect)
	r.POST("/sessions/:id/transcript", h.AddTranscript)
	r.POST("/sessions/:id/close", h.CloseSession)
}

// CreateSession handles POST /v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "phoneNumber is required",
		})
		return
	}

	session := h.tracker.CreateSession(req)
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// GetSession handles GET /v1/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.tracker.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "session_not_found",
			"message": "Session does not exist or has expired",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// Connect handles POST /v1/sessions/:id/connect
func (h *Handler) Connect(c *gin.Context) {
	if !h.tracker.Connect(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "session_not_found",
			"message": "Session does not exist, has expired, or is closed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusConnected})
}

// AddTranscript handles POST /v1/sessions/:id/transcript
func (h *Handler) AddTranscript(c *gin.Context) {
	var req struct {
		Speaker string `json:"speaker" binding:"required"`
		Text    string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "speaker and text are required",
		})
		return
	}

	if !h.tracker.AddTranscript(c.Param("id"), req.Speaker, req.Text) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "session_not_found",
			"message": "Session does not exist or has expired",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// CloseSession handles POST /v1/sessions/:id/close
func (h *Handler) CloseSession(c *gin.Context) {
	session, err := h.tracker.CloseSession(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "session_not_found",
				"message": "Session does not exist or has expired",
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
		h.broadcast.BroadcastSessionClosed(map[string]interface{}{
			"sessionId":  session.ID,
			"number":     session.PhoneNumber,
			"durationMs": session.DurationMs,
			"warnings":   len(session.Warnings),
		})
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// GetStatistics handles GET /v1/sessions/stats
func (h *Handler) GetStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Statistics())
}
