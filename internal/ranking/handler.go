package ranking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moviehub/internal/gate"
	"moviehub/internal/logging"
)

type Handler struct {
	Engine     *Engine
	TopN       int
	PoolSize   int
	ResultSize int
}

func NewHandler(engine *Engine, topN, poolSize, resultSize int) *Handler {
	return &Handler{Engine: engine, TopN: topN, PoolSize: poolSize, ResultSize: resultSize}
}

// RegisterRoutes expects a group already behind gate.Guard.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.stats)
	rg.GET("/recommendations", h.recommend)
}

func (h *Handler) stats(c *gin.Context) {
	n := gate.QueryInt(c, "n", h.TopN)
	items, err := h.Engine.TopRequested(c.Request.Context(), n)
	if err != nil {
		logging.Error().Err(err).Msg("top requested failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) recommend(c *gin.Context) {
	userID := gate.UserID(c)
	items, err := h.Engine.Recommend(c.Request.Context(), userID, h.PoolSize, h.ResultSize)
	if err != nil {
		logging.Error().Err(err).Int64("user_id", userID).Msg("recommend failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recommendations unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
