// Package server assembles the HTTP surface from the domain handlers.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moviehub/internal/auth"
	"moviehub/internal/catalog"
	"moviehub/internal/demand"
	"moviehub/internal/favorites"
	"moviehub/internal/gate"
	"moviehub/internal/history"
	"moviehub/internal/logging"
	"moviehub/internal/metrics"
	"moviehub/internal/ranking"
	"moviehub/internal/resolve"
	synchub "moviehub/internal/sync"
)

type RankingLimits struct {
	TopN       int
	PoolSize   int
	ResultSize int
}

type Deps struct {
	DB       *sql.DB
	Tokens   auth.TokenService
	Operator auth.Operator

	Gate    gate.Checker
	Limiter *gate.RateLimiter // nil disables per-user limiting

	Hub            *synchub.Hub
	AllowedOrigins []string

	Catalog   *catalog.Repo
	Demand    *demand.Repo
	History   *history.Repo
	Favorites *favorites.Repo
	Ranking   *ranking.Engine
	Engine    *resolve.Engine
	Limits    RankingLimits
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinLogger(), metrics.GinMiddleware())
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", readyHandler(d.DB, d.Hub))
	r.GET("/metrics", metrics.Handler())

	auth.NewHandler(d.Operator, d.Tokens).RegisterRoutes(r.Group("/auth"))
	if d.Hub != nil {
		r.GET("/events/ws", synchub.WSHandler(d.Hub, d.Tokens, d.AllowedOrigins))
	}

	v1 := r.Group("/v1", auth.AuthMiddleware(d.Tokens, auth.RoleTransport, auth.RoleOperator))

	var pub catalog.Publisher
	if d.Hub != nil {
		pub = synchub.NewHubSink(d.Hub)
	}
	catalog.NewHandler(d.Catalog, pub).RegisterRoutes(v1.Group("/catalog"))

	resolveHandler := resolve.NewHandler(d.Engine)
	resolveHandler.RegisterDeliveryRoutes(v1.Group("/deliveries"))

	checker := d.Gate
	if checker == nil {
		checker = gate.AllowAll{}
	}
	users := v1.Group("/users/:user_id", gate.Guard(checker))
	if d.Limiter != nil {
		users.Use(d.Limiter.Middleware())
	}
	resolveHandler.RegisterUserRoutes(users)
	favorites.NewHandler(d.Favorites, d.Catalog).RegisterRoutes(users)
	history.NewHandler(d.History).RegisterRoutes(users)
	ranking.NewHandler(d.Ranking, d.Limits.TopN, d.Limits.PoolSize, d.Limits.ResultSize).RegisterRoutes(users)

	admin := v1.Group("/admin", auth.RequireRole(auth.RoleOperator))
	demand.NewHandler(d.Demand).RegisterRoutes(admin)

	return r
}

func readyHandler(db *sql.DB, hub *synchub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats synchub.Stats
		if hub != nil {
			stats = hub.Stats()
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	}
}
