package auth

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokens() TokenService {
	return TokenService{Secret: []byte("test-secret"), Issuer: "moviehub", Duration: time.Hour}
}

func TestSignParse(t *testing.T) {
	ts := testTokens()
	raw, exp, err := ts.Sign("bot", RoleTransport)
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := ts.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "bot", claims.Subject)
	assert.Equal(t, RoleTransport, claims.Role)
}

func TestSign_NoExpiry(t *testing.T) {
	ts := testTokens()
	ts.Duration = 0
	raw, exp, err := ts.Sign("bot", RoleTransport)
	require.NoError(t, err)
	assert.True(t, exp.IsZero())

	claims, err := ts.Parse(raw)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestSign_UnknownRole(t *testing.T) {
	_, _, err := testTokens().Sign("x", "admin")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParse_Rejects(t *testing.T) {
	ts := testTokens()
	raw, _, err := ts.Sign("bot", RoleTransport)
	require.NoError(t, err)

	other := ts
	other.Secret = []byte("other")
	_, err = other.Parse(raw)
	assert.Error(t, err, "wrong secret")

	wrongIss := ts
	wrongIss.Issuer = "someone-else"
	_, err = wrongIss.Parse(raw)
	assert.Error(t, err, "wrong issuer")

	expired := ts
	expired.Duration = -time.Minute
	old, _, err := expired.Sign("bot", RoleTransport)
	require.NoError(t, err)
	_, err = ts.Parse(old)
	assert.Error(t, err, "expired")
}

func newAuthRouter(ts TokenService, op Operator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(op, ts).RegisterRoutes(r.Group("/auth"))

	v1 := r.Group("/v1", AuthMiddleware(ts, RoleTransport, RoleOperator))
	v1.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	v1.GET("/admin", RequireRole(RoleOperator), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func get(r http.Handler, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestMiddleware_Roles(t *testing.T) {
	ts := testTokens()
	r := newAuthRouter(ts, Operator{})

	transport, _, err := ts.Sign("bot", RoleTransport)
	require.NoError(t, err)
	operator, _, err := ts.Sign("ops", RoleOperator)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/v1/ping", ""))
	assert.Equal(t, http.StatusUnauthorized, get(r, "/v1/ping", "garbage"))
	assert.Equal(t, http.StatusOK, get(r, "/v1/ping", transport))
	assert.Equal(t, http.StatusForbidden, get(r, "/v1/admin", transport))
	assert.Equal(t, http.StatusOK, get(r, "/v1/admin", operator))
}

func TestLogin(t *testing.T) {
	ts := testTokens()
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	r := newAuthRouter(ts, Operator{Username: "ops", PasswordHash: hash})

	login := func(user, pass string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"username": user, "password": pass})
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := login("ops", "hunter22")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, RoleOperator, resp.Role)
	assert.Equal(t, http.StatusOK, get(r, "/v1/admin", resp.Token))

	assert.Equal(t, http.StatusUnauthorized, login("ops", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, login("root", "hunter22").Code)
	assert.Equal(t, http.StatusBadRequest, login("", "").Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", BearerToken(req))
	req.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", BearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", BearerToken(req))
}
