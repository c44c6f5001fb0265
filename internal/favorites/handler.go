package favorites

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"moviehub/internal/catalog"
	"moviehub/internal/gate"
	"moviehub/internal/logging"
	"moviehub/pkg/models"
)

// TitleLookup resolves an exact normalized title to a catalog entry.
type TitleLookup interface {
	FindByTitle(ctx context.Context, normalizedTitle string) (*models.CatalogEntry, error)
}

type Handler struct {
	Repo    *Repo
	Catalog TitleLookup
}

func NewHandler(repo *Repo, catalog TitleLookup) *Handler {
	return &Handler{Repo: repo, Catalog: catalog}
}

// RegisterRoutes expects a group already behind gate.Guard.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/favorites", h.list)
	rg.POST("/favorites", h.add)
	rg.DELETE("/favorites/:entry_id", h.remove)
}

type addReq struct {
	Title string `json:"title"`
}

func (h *Handler) add(c *gin.Context) {
	userID := gate.UserID(c)

	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	title := catalog.Normalize(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}

	// exact title only; fuzzy matching is reserved for queries
	entry, err := h.Catalog.FindByTitle(c.Request.Context(), title)
	if err != nil {
		logging.Error().Err(err).Str("title", title).Msg("favorite lookup failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lookup failed"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "movie not found"})
		return
	}

	added, err := h.Repo.Add(c.Request.Context(), userID, entry.ID)
	if err != nil {
		logging.Error().Err(err).Int64("user_id", userID).Int64("entry_id", entry.ID).Msg("add favorite failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "entry": entry})
}

func (h *Handler) list(c *gin.Context) {
	userID := gate.UserID(c)

	items, err := h.Repo.List(c.Request.Context(), userID)
	if err != nil {
		logging.Error().Err(err).Int64("user_id", userID).Msg("list favorites failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) remove(c *gin.Context) {
	userID := gate.UserID(c)

	entryID, err := strconv.ParseInt(c.Param("entry_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry_id"})
		return
	}

	ok, err := h.Repo.Remove(c.Request.Context(), userID, entryID)
	if err != nil {
		logging.Error().Err(err).Int64("user_id", userID).Int64("entry_id", entryID).Msg("remove favorite failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
