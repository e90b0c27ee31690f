package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/afisha-dev/afisha/internal/config"
	"github.com/afisha-dev/afisha/internal/db"
	httpx "github.com/afisha-dev/afisha/internal/http"
	"github.com/afisha-dev/afisha/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	shutdownTracer, err := observability.InitTracer(context.Background(), cfg.AppName+"-stats", cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracer init failed, continuing without tracing", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	ctx, cancel := config.WithTimeout(10 * time.Second)
	if err := db.EnsureSchema(ctx, pool); err != nil {
		cancel()
		log.Error("schema setup failed", "err", err)
		os.Exit(1)
	}
	cancel()

	router := httpx.NewStatsRouter(&cfg, log, pool, prom, registry)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.StatsPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("stats server starting", "port", cfg.StatsPort, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
