package demand

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"moviehub/internal/logging"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes mounts the operator view; the caller applies the role check.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/missing", h.list)
}

func (h *Handler) list(c *gin.Context) {
	limit := 50
	if s := strings.TrimSpace(c.Query("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	items, err := h.Repo.List(c.Request.Context(), limit)
	if err != nil {
		logging.Error().Err(err).Msg("list missing queries failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
