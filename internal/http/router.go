package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/afisha-dev/afisha/internal/cache"
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

const maxBodyBytes = 1 << 20 // 1 MiB

// NewRouter wires the main service: admin, public and per-user endpoints.
func NewRouter(
	cfg *config.Config,
	log *slog.Logger,
	pool *pgxpool.Pool,
	prom *observability.Prom,
	registry *prometheus.Registry,
	statsRec handlers.StatsRecorder,
	viewCache handlers.ViewCounter,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	}

	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(prom.GinHandleMiddleware())
	r.Use(otelgin.Middleware(cfg.AppName))

	// health
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

	// repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	categoriesRepo := postgres.NewCategoriesRepo(pool, prom)
	eventsRepo := postgres.NewEventsRepo(pool, prom)
	requestsRepo := postgres.NewRequestsRepo(pool, prom)
	compilationsRepo := postgres.NewCompilationsRepo(pool, prom)

	listCache := cache.New(10 * time.Second)

	// handlers
	usersHandler := handlers.NewUsersHandler(usersRepo)
	categoriesHandler := handlers.NewCategoriesHandler(categoriesRepo, listCache)
	eventsHandler := handlers.NewEventsHandler(eventsRepo, categoriesRepo, statsRec, viewCache)
	requestsHandler := handlers.NewRequestsHandler(requestsRepo)
	compilationsHandler := handlers.NewCompilationsHandler(compilationsRepo, listCache)

	// admin
	admin := r.Group("/admin")
	{
		admin.POST("/users", usersHandler.Create)
		admin.GET("/users", usersHandler.List)
		admin.DELETE("/users/:userId", usersHandler.Delete)

		admin.POST("/categories", categoriesHandler.Create)
		admin.PATCH("/categories/:catId", categoriesHandler.Update)
		admin.DELETE("/categories/:catId", categoriesHandler.Delete)

		admin.GET("/events", eventsHandler.SearchAdmin)
		admin.PATCH("/events/:eventId", eventsHandler.AdminUpdate)

		admin.POST("/compilations", compilationsHandler.Create)
		admin.PATCH("/compilations/:compId", compilationsHandler.Update)
		admin.DELETE("/compilations/:compId", compilationsHandler.Delete)
	}

	// public, rate limited by client ip
	rl := middlewares.NewRateLimiter(120, time.Minute)
	public := r.Group("/", rl.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		public.GET("/categories", categoriesHandler.List)
		public.GET("/categories/:catId", categoriesHandler.GetByID)

		public.GET("/compilations", compilationsHandler.List)
		public.GET("/compilations/:compId", compilationsHandler.GetByID)

		public.GET("/events", eventsHandler.SearchPublic)
		public.GET("/events/:eventId", eventsHandler.GetPublic)
	}

	// per-user
	users := r.Group("/users/:userId")
	{
		users.GET("/events", eventsHandler.ListOwn)
		users.POST("/events", eventsHandler.Create)
		users.GET("/events/:eventId", eventsHandler.GetOwn)
		users.PATCH("/events/:eventId", eventsHandler.UserUpdate)

		users.GET("/events/:eventId/requests", requestsHandler.ListForEvent)
		users.PATCH("/events/:eventId/requests", requestsHandler.UpdateStatuses)

		users.GET("/requests", requestsHandler.ListOwn)
		users.POST("/requests", requestsHandler.Create)
		users.PATCH("/requests/:requestId/cancel", requestsHandler.Cancel)
	}

	log.Info("router initialized", "env", cfg.Env)

	return r
}
