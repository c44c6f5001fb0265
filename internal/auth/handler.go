package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"moviehub/internal/logging"
)

// Operator is the single human account allowed to log in. PasswordHash is a
// bcrypt hash; there is no user table.
type Operator struct {
	Username     string
	PasswordHash string
}

type Handler struct {
	Operator Operator
	Tokens   TokenService
}

func NewHandler(op Operator, tokens TokenService) *Handler {
	return &Handler{Operator: op, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.login)
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if h.Operator.PasswordHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	// don't reveal which part failed
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.Operator.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.Operator.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		logging.Warn().Str("username", username).Str("ip", c.ClientIP()).Msg("operator login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, exp, err := h.Tokens.Sign(username, RoleOperator)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	resp := gin.H{"token": token, "role": RoleOperator}
	if !exp.IsZero() {
		resp["expires_at"] = exp.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// HashPassword is used by the CLI to produce a config-ready hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
