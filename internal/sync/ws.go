package sync

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"moviehub/internal/auth"
	"moviehub/internal/logging"
)

// WSHandler upgrades operator connections onto the event feed. Browsers
// cannot set headers on a WebSocket handshake, so the token may also come in
// the "token" query parameter.
func WSHandler(hub *Hub, tokens auth.TokenService, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(c *gin.Context) {
		raw := auth.BearerToken(c.Request)
		if raw == "" {
			raw = strings.TrimSpace(c.Query("token"))
		}
		claims, err := tokens.Parse(raw)
		if err != nil || claims.Role != auth.RoleOperator {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "operator token required"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		_ = ws.WriteMessage(websocket.TextMessage, hub.Welcome())
		hub.AddWS(ws)
		logging.Debug().Str("operator", claims.Subject).Msg("ws client connected")

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		logging.Debug().Str("operator", claims.Subject).Msg("ws client disconnected")
	}
}

// originChecker allows same-origin requests, non-browser clients, and any
// origin in allowed ("*" allows all).
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
	}
}
