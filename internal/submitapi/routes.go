package submitapi

import (
	"github.com/arcane-tourneys/botarena/internal/cache"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts the submission API under router. Submit,
// SubmitBatch and Delete require a bearer token; List, Verify and
// Template are open since they carry no team-identifying side effect
// beyond a read or a dry-run build.
func RegisterRoutes(router gin.IRouter, srv *Server, cacheSvc *cache.Service, logger *zap.SugaredLogger) {
	router.Use(requestID(), accessLog(logger), rateLimit(cacheSvc, srv.cfg.RateLimitPerMin))

	bots := router.Group("/bots")
	{
		bots.GET("/list", srv.List)
		bots.POST("/verify", srv.Verify)
		bots.POST("/submit", requireAuth(srv.cfg.JWTSecret), srv.Submit)
		bots.POST("/submit-batch", requireAuth(srv.cfg.JWTSecret), srv.SubmitBatch)
		bots.DELETE("/:teamName", requireAuth(srv.cfg.JWTSecret), srv.Delete)
	}

	router.GET("/resources/templates/:name", srv.Template)
}
