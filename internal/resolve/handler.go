package resolve

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"moviehub/internal/gate"
)

type Handler struct {
	Engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

// RegisterUserRoutes mounts routes that act on behalf of one end user; the
// group must already be behind gate.Guard.
func (h *Handler) RegisterUserRoutes(rg *gin.RouterGroup) {
	rg.POST("/queries", h.query)
	rg.POST("/suggestions", h.suggest)
}

// RegisterDeliveryRoutes mounts the transport's token callbacks.
func (h *Handler) RegisterDeliveryRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/:token", h.retract)
	rg.POST("/:token/confirm", h.confirm)
}

type queryReq struct {
	Text string `json:"text"`
}

func (h *Handler) query(c *gin.Context) {
	var req queryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.Engine.Resolve(c.Request.Context(), gate.UserID(c), req.Text)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, try again"})
		return
	}
	if res.Status == StatusNotFound {
		c.JSON(http.StatusOK, gin.H{
			"status":     res.Status,
			"query":      res.Query,
			"miss_count": res.MissCount,
			"escalated":  res.Escalated,
			"message":    NotFoundMessage,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

type suggestReq struct {
	Text string `json:"text"`
	Name string `json:"name"`
}

func (h *Handler) suggest(c *gin.Context) {
	var req suggestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Engine.Suggest(c.Request.Context(), gate.UserID(c), req.Name, req.Text); err != nil {
		if errors.Is(err, ErrEmptySuggestion) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text required"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "suggestion failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "suggestion sent"})
}

func (h *Handler) retract(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	res, err := h.Engine.Retract(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "retraction failed"})
		return
	}
	if res.Outcome == OutcomeInvalidToken {
		c.JSON(http.StatusOK, gin.H{"retracted": false, "outcome": res.Outcome})
		return
	}
	c.JSON(http.StatusOK, gin.H{"retracted": true, "outcome": res.Outcome, "delivery": res.Token})
}

type confirmReq struct {
	DeliveredRef string `json:"delivered_ref"`
	OK           *bool  `json:"ok"`
}

func (h *Handler) confirm(c *gin.Context) {
	var req confirmReq
	if err := c.ShouldBindJSON(&req); err != nil || req.OK == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ok required"})
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	found, err := h.Engine.Confirm(c.Request.Context(), token, req.DeliveredRef, *req.OK)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "confirm failed"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": true})
}
