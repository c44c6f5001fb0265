package catalog

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/pkg/models"
)

type recordingPub struct {
	entries []models.CatalogEntry
}

func (p *recordingPub) PublishIngested(e models.CatalogEntry) {
	p.entries = append(p.entries, e)
}

func newTestRouter(t *testing.T) (*gin.Engine, *recordingPub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pub := &recordingPub{}
	r := gin.New()
	NewHandler(newTestRepo(t), pub).RegisterRoutes(r.Group("/catalog"))
	return r, pub
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_IngestThenDuplicate(t *testing.T) {
	r, pub := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/catalog", `{"title":"Inception","content_ref":"42"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Entry   models.CatalogEntry `json:"entry"`
		Created bool                `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Created)
	assert.Equal(t, "inception", resp.Entry.NormalizedTitle)

	w = doRequest(r, http.MethodPost, "/catalog", `{"title":"inception","content_ref":"7"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Created)
	assert.Equal(t, "42", resp.Entry.ContentRef)

	assert.Len(t, pub.entries, 1, "only new entries are published")
}

func TestHandler_IngestRejectsMissingFields(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doRequest(r, http.MethodPost, "/catalog", `{"title":"Inception"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, "/catalog", `{"title":"   ","content_ref":"1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetByID(t *testing.T) {
	r, _ := newTestRouter(t)
	doRequest(r, http.MethodPost, "/catalog", `{"title":"Alien","content_ref":"5"}`)

	w := doRequest(r, http.MethodGet, "/catalog/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"alien"`)

	w = doRequest(r, http.MethodGet, "/catalog/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, "/catalog/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
