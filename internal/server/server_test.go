package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/cache"
	"github.com/arcane-tourneys/botarena/internal/config"
	"github.com/arcane-tourneys/botarena/internal/dashboard"
	"github.com/arcane-tourneys/botarena/internal/live"
	"github.com/arcane-tourneys/botarena/internal/loader"
	"github.com/arcane-tourneys/botarena/internal/submitapi"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		Server: config.ServerConfig{
			Port: "0",
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cacheSvc := cache.New(client, nil)

	eventBus := bus.New(nil)
	agg := live.NewAggregator(eventBus, nil)
	hub := dashboard.NewHub(eventBus, agg, nil)
	ld := loader.New(nil, loader.Config{})
	submit := submitapi.NewServer(submitapi.Config{RateLimitPerMin: 1000}, ld, cacheSvc, nil)

	srv := New(testConfig(), submit, cacheSvc, hub, agg, nil)
	require.NotNil(t, srv)
	return srv
}

func TestNew_HealthEndpointReturnsOK(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestNew_MountsSubmissionAndDashboardRoutesUnderAPI(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/bots/list", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}

func TestShutdown_StopsCleanlyWithoutHavingStarted(t *testing.T) {
	srv := newTestServer(t)
	err := srv.Shutdown(context.Background())
	assert.NoError(t, err)
}
