package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/afisha-dev/afisha/internal/config"
	"github.com/afisha-dev/afisha/internal/http/handlers"
	"github.com/afisha-dev/afisha/internal/http/middlewares"
	"github.com/afisha-dev/afisha/internal/observability"
	"github.com/afisha-dev/afisha/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewStatsRouter wires the stats service: hit ingestion and aggregation.
func NewStatsRouter(
	cfg *config.Config,
	log *slog.Logger,
	pool *pgxpool.Pool,
	prom *observability.Prom,
	registry *prometheus.Registry,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(prom.GinHandleMiddleware())
	r.Use(otelgin.Middleware(cfg.AppName + "-stats"))

	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	statsHandler := handlers.NewStatsHandler(postgres.NewHitsRepo(pool, prom))

	r.POST("/hit", statsHandler.CreateHit)
	r.GET("/stats", statsHandler.GetStats)

	log.Info("stats router initialized", "env", cfg.Env)

	return r
}
