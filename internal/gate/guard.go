package gate

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"moviehub/internal/logging"
	"moviehub/internal/metrics"
)

// DenyMessage is shown to users who fail the membership check.
const DenyMessage = "You must be a member of the channel to use this bot."

const userIDKey = "gate.user_id"

// Guard parses the :user_id path parameter and runs the membership check
// before any user-scoped handler. Denied requests never reach the handler.
func Guard(checker Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(strings.TrimSpace(c.Param("user_id")), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		if !checker.IsPermitted(c.Request.Context(), userID) {
			logging.Debug().Int64("user_id", userID).Msg("gate denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": DenyMessage})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the id Guard admitted. Zero means Guard did not run.
func UserID(c *gin.Context) int64 {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(int64)
	return id
}

// QueryInt reads an integer query parameter, falling back to def.
func QueryInt(c *gin.Context, key string, def int) int {
	s := strings.TrimSpace(c.Query(key))
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// RateLimiter keeps one token bucket per user.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*limiterEntry
	rate     rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows burst requests per window for each user.
func NewRateLimiter(burst int, window time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limiters: make(map[int64]*limiterEntry),
		rate:     rate.Every(window / time.Duration(burst)),
		burst:    burst,
	}
}

func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	e, ok := rl.limiters[userID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[userID] = e
	}
	e.lastAccess = time.Now()
	lim := e.limiter
	rl.mu.Unlock()

	return lim.Allow()
}

// Prune drops buckets idle for longer than maxIdle.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	n := 0
	for id, e := range rl.limiters {
		if e.lastAccess.Before(cutoff) {
			delete(rl.limiters, id)
			n++
		}
	}
	return n
}

// Middleware must run after Guard.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(UserID(c)) {
			metrics.GateDecisionsTotal.WithLabelValues("rate_limited").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
