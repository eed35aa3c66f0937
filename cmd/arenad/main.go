// cmd/arenad is the engine's entry point. It wires configuration,
// telemetry, storage, the loader, the orchestration stack, the live
// aggregator, and the HTTP surface together, then runs one series to
// completion while serving the dashboard and submission API, grounded
// on a standard config -> storage -> orchestration -> HTTP startup/shutdown sequence.
package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcane-tourneys/botarena/internal/agent"
	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/cache"
	"github.com/arcane-tourneys/botarena/internal/config"
	"github.com/arcane-tourneys/botarena/internal/dashboard"
	"github.com/arcane-tourneys/botarena/internal/event"
	"github.com/arcane-tourneys/botarena/internal/games"
	"github.com/arcane-tourneys/botarena/internal/live"
	"github.com/arcane-tourneys/botarena/internal/loader"
	"github.com/arcane-tourneys/botarena/internal/match"
	"github.com/arcane-tourneys/botarena/internal/persistence"
	"github.com/arcane-tourneys/botarena/internal/schedule"
	"github.com/arcane-tourneys/botarena/internal/series"
	"github.com/arcane-tourneys/botarena/internal/server"
	"github.com/arcane-tourneys/botarena/internal/submitapi"
	"github.com/arcane-tourneys/botarena/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := persistence.NewClient(ctx, cfg.Database.MongoDB.URI)
	if err != nil {
		logger.Fatalw("connect mongo", "error", err)
	}
	defer mongoClient.Disconnect(ctx)
	store := persistence.NewStore(mongoClient.Database(cfg.Database.MongoDB.Database), logger)

	redisClient := cache.NewClient(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	defer redisClient.Close()
	cacheSvc := cache.New(redisClient, logger)

	eventBus := bus.New(logger)

	registry := games.DefaultRegistry(
		cfg.Tournament.BlottoTroops,
		cfg.Tournament.BlottoBattlefields,
		cfg.Tournament.SecurityTargets,
		cfg.Tournament.SecurityAvailableTroops,
	)

	botLoader := loader.New(loader.NewGoPluginProvider(os.TempDir()), loader.Config{
		MaxTotalBytes: cfg.Submission.MaxTotalBytes,
		MaxFileBytes:  cfg.Submission.MaxFileBytes,
		MemoryLimitMB: cfg.Tournament.MemoryLimitMB,
	})

	handles, failures, err := botLoader.LoadBotsFromDirectory(cfg.Loader.BotsDirectory)
	if err != nil {
		logger.Fatalw("load bots directory", "error", err)
	}
	for _, f := range failures {
		logger.Warnw("bot submission rejected at startup", "teamName", f.TeamName, "errors", f.Errors)
	}
	logger.Infow("loaded bots", "count", len(handles))

	matchCfg := match.Config{
		MoveTimeout:             cfg.Tournament.MoveTimeout,
		TotalRoundsRPSLS:        cfg.Tournament.TotalRoundsRPSLS,
		TotalRoundsBlotto:       cfg.Tournament.TotalRoundsBlotto,
		TotalRoundsPenalty:      cfg.Tournament.TotalRoundsPenalty,
		TotalRoundsSecurity:     cfg.Tournament.TotalRoundsSecurity,
		BlottoTroops:            cfg.Tournament.BlottoTroops,
		BlottoBattlefields:      cfg.Tournament.BlottoBattlefields,
		SecurityTargets:         cfg.Tournament.SecurityTargets,
		SecurityAvailableTroops: cfg.Tournament.SecurityAvailableTroops,
		MemoryLimitMB:           cfg.Tournament.MemoryLimitMB,
	}
	scheduleCfg := schedule.Config{
		GroupCount:             cfg.Tournament.GroupCount,
		FinalistsPerGroup:      cfg.Tournament.FinalistsPerGroup,
		MaxParallelMatches:     cfg.Tournament.MaxParallelMatches,
		TiebreakerGameType:     cfg.Tournament.TiebreakerGameType,
		MaxTiebreakerRematches: cfg.Tournament.MaxTiebreakerRematches,
	}
	eventCfg := event.Config{GameOrder: cfg.Tournament.GameTypes}

	reloader := loader.EventReloader{Loader: botLoader, Logger: logger}
	tournamentOrchestrator, err := event.NewOrchestrator(eventCfg, scheduleCfg, matchCfg, registry, eventBus, logger, reloader)
	if err != nil {
		logger.Fatalw("build tournament orchestrator", "error", err)
	}
	seriesOrchestrator, err := series.NewOrchestrator(tournamentOrchestrator, cfg.Tournament.SeriesLength)
	if err != nil {
		logger.Fatalw("build series orchestrator", "error", err)
	}

	aggregator := live.NewAggregator(eventBus, logger)
	aggregator.Start(ctx)
	defer aggregator.Stop()

	hub := dashboard.NewHub(eventBus, aggregator, logger)
	hub.Listen(ctx)
	go hub.Run(ctx)

	submitSrv := submitapi.NewServer(submitapi.Config{
		BotsDirectory:   cfg.Loader.BotsDirectory,
		TemplatesDir:    cfg.Submission.TemplatesDir,
		JWTSecret:       cfg.Auth.JWTSecret,
		JWTExpiration:   cfg.Auth.JWTExpiration,
		RateLimitPerMin: cfg.Submission.RateLimitPerMin,
	}, botLoader, cacheSvc, logger)

	httpServer := server.New(cfg, submitSrv, cacheSvc, hub, aggregator, logger)

	go func() {
		logger.Infow("starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server start", "error", err)
		}
	}()

	go runSeries(ctx, seriesOrchestrator, eventBus, store, handles, logger)

	gracefulShutdown(httpServer, cancel, logger)
}

// runSeries drives the configured number of tournaments to completion
// and persists the resulting series document once it finishes.
func runSeries(ctx context.Context, orchestrator *series.Orchestrator, eventBus *bus.Bus, store *persistence.Store, handles []*agent.Handle, logger *zap.SugaredLogger) {
	seriesID := uuid.NewString()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	info, err := orchestrator.RunSeries(ctx, seriesID, handles, eventBus, rng)
	if err != nil {
		logger.Errorw("series run failed", "error", err)
		return
	}

	doc := persistence.ToDocument(info)
	if err := store.SaveSeries(ctx, doc); err != nil {
		logger.Errorw("persist series document", "error", err)
	}
	store.LogEvent(ctx, "series_completed", map[string]interface{}{"seriesId": seriesID, "champion": info.SeriesChampion})
	logger.Infow("series complete", "seriesId", seriesID, "champion", info.SeriesChampion)
}

func gracefulShutdown(srv *server.Server, cancel context.CancelFunc, logger *zap.SugaredLogger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infow("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
	}
	logger.Infow("server exited")
}
