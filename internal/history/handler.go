package history

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moviehub/internal/gate"
	"moviehub/internal/logging"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes expects a group already behind gate.Guard.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/history", h.list)
}

func (h *Handler) list(c *gin.Context) {
	userID := gate.UserID(c)

	limit := gate.QueryInt(c, "limit", 50)
	offset := gate.QueryInt(c, "offset", 0)

	items, total, err := h.Repo.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logging.Error().Err(err).Int64("user_id", userID).Msg("list history failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}
