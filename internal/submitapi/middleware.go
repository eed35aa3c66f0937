package submitapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arcane-tourneys/botarena/internal/cache"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// requestID tags every request for correlation across logs, grounded
// backed by google/uuid instead of a hand-rolled generator.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func accessLog(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if logger == nil {
			return
		}
		logger.Infow("submitapi: request",
			"requestId", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"clientIP", c.ClientIP(),
		)
	}
}

// rateLimit enforces a fixed per-minute request budget per client
// identity, failing open on a cache error rather than blocking traffic.
func rateLimit(svc *cache.Service, limitPerMin int) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := fmt.Sprintf("ip:%s", c.ClientIP())
		if teamName, ok := c.Get("team_name"); ok {
			identity = fmt.Sprintf("team:%s", teamName)
		}

		allowed, remaining, err := svc.AllowRequest(c.Request.Context(), identity, limitPerMin, time.Minute)
		if err != nil {
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limitPerMin))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "retryAfter": 60})
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAuth validates the bearer token and binds the caller's team
// name into the gin context for downstream handlers.
func requireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		teamName, err := ValidateToken(parts[1], secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("team_name", teamName)
		c.Next()
	}
}
