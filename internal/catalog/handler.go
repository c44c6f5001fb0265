package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"moviehub/internal/logging"
	"moviehub/internal/metrics"
	"moviehub/pkg/models"
)

// Publisher receives catalog events for the operator feed.
type Publisher interface {
	PublishIngested(entry models.CatalogEntry)
}

type Handler struct {
	Repo *Repo
	Pub  Publisher
}

func NewHandler(repo *Repo, pub Publisher) *Handler {
	return &Handler{Repo: repo, Pub: pub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)        // GET /catalog
	rg.GET("/:id", h.getByID) // GET /catalog/:id
	rg.POST("", h.ingest)     // POST /catalog
}

type ingestReq struct {
	Title      string `json:"title" binding:"required"`
	ContentRef string `json:"content_ref" binding:"required"`
}

// ingest is the transport's hook for new media posted in the source group.
// Captions without a usable title are expected to be dropped upstream.
func (h *Handler) ingest(c *gin.Context) {
	var req ingestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and content_ref required"})
		return
	}

	entry, created, err := h.Repo.Ingest(c.Request.Context(), req.Title, req.ContentRef)
	if err != nil {
		if errors.Is(err, ErrEmptyTitle) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
			return
		}
		metrics.IngestionsTotal.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("title", req.Title).Msg("catalog ingest failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ingest failed"})
		return
	}

	if !created {
		metrics.IngestionsTotal.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"entry": entry, "created": false})
		return
	}

	metrics.IngestionsTotal.WithLabelValues("created").Inc()
	logging.Info().Int64("entry_id", entry.ID).Str("title", entry.NormalizedTitle).Msg("catalog entry added")
	if h.Pub != nil {
		h.Pub.PublishIngested(*entry)
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry, "created": true})
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Q:      c.Query("q"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	e, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
