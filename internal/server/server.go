// Package server assembles the engine's one HTTP listener: the
// submission API and the live dashboard share it, same single-process
// layout as a typical gin-based service entry point.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arcane-tourneys/botarena/internal/cache"
	"github.com/arcane-tourneys/botarena/internal/config"
	"github.com/arcane-tourneys/botarena/internal/dashboard"
	"github.com/arcane-tourneys/botarena/internal/live"
	"github.com/arcane-tourneys/botarena/internal/submitapi"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server wraps the gin engine and the stdlib http.Server driving it.
type Server struct {
	httpServer *http.Server
	logger     *zap.SugaredLogger
}

// New builds the router (submission API + dashboard) and wraps it in
// an http.Server configured from cfg.Server.
func New(cfg *config.Config, submit *submitapi.Server, cacheSvc *cache.Service, hub *dashboard.Hub, aggregator *live.Aggregator, logger *zap.SugaredLogger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	submitapi.RegisterRoutes(api, submit, cacheSvc, logger)
	dashboard.RegisterRoutes(api, hub, aggregator)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{httpServer: httpServer, logger: logger}
}

func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("server: shutting down")
	}
	return s.httpServer.Shutdown(ctx)
}
