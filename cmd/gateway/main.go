package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"go.opentelemetry.io/otel"

	"github.com/kwlab/suggest-gateway/config"
	"github.com/kwlab/suggest-gateway/internal/auth"
	"github.com/kwlab/suggest-gateway/internal/dispatch"
	"github.com/kwlab/suggest-gateway/internal/provider"
	"github.com/kwlab/suggest-gateway/internal/provider/amazon"
	"github.com/kwlab/suggest-gateway/internal/provider/bing"
	"github.com/kwlab/suggest-gateway/internal/provider/brave"
	"github.com/kwlab/suggest-gateway/internal/provider/duckduckgo"
	"github.com/kwlab/suggest-gateway/internal/provider/google"
	"github.com/kwlab/suggest-gateway/internal/provider/qwant"
	"github.com/kwlab/suggest-gateway/internal/provider/yahoo"
	"github.com/kwlab/suggest-gateway/internal/seeder"
	"github.com/kwlab/suggest-gateway/internal/telemetry"
	"github.com/kwlab/suggest-gateway/internal/usage"
	"github.com/kwlab/suggest-gateway/internal/worker"
	"github.com/kwlab/suggest-gateway/pkg/ratelimit"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("suggest-gateway", cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracer")
	}
	defer shutdownTracer()

	// 3. Connect PostgreSQL
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping postgres")
	}
	logger.Info().Msg("postgres connected")

	// 4. Connect Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping redis")
	}
	logger.Info().Msg("redis connected")

	// 5. Init auth
	authStore := auth.NewPostgresStore(pool)
	authMiddleware := auth.NewMiddleware(authStore, rdb, logger)

	// 6. Init usage accounting
	usageStore := usage.NewPostgresStore(pool)

	// 7. Init rate limiter
	limiter := ratelimit.NewLimiter(rdb, cfg.DefaultRateLimitRPM)

	// 8. Register providers. Explicit registration keeps startup
	// deterministic and makes duplicate slugs fail fast.
	registry := provider.NewRegistry()
	for _, p := range []provider.Provider{
		google.New(),
		bing.New(),
		amazon.New(),
		duckduckgo.New(),
		yahoo.New(),
		qwant.New(),
		brave.New(),
	} {
		if err := registry.Register(p); err != nil {
			logger.Fatal().Err(err).Msg("provider registration failed")
		}
	}

	// 9. Init dispatcher
	dispatcher := dispatch.NewDispatcher(registry, dispatch.Options{
		Timeout:     time.Duration(cfg.SuggestTimeoutSec) * time.Second,
		CacheSize:   cfg.CacheMaxEntries,
		Concurrency: cfg.FetchConcurrency,
		Logger:      logger,
	})
	defer dispatcher.Close()

	// 10. Init handler
	tracer := otel.GetTracerProvider().Tracer("suggest-gateway")
	handler := dispatch.NewHandler(dispatcher, usageStore, limiter, tracer)

	// 11. Seed test API key if RUN_SEED=true
	if os.Getenv("RUN_SEED") == "true" {
		seeder.SeedTestAPIKey(ctx, authStore, logger)
	}

	// 12. Cache warmer (optional)
	warmCtx, stopWarmer := context.WithCancel(ctx)
	defer stopWarmer()
	if cfg.WarmIntervalSec > 0 {
		warmer := worker.NewWarmer(
			dispatcher,
			usageStore,
			registry.Slugs(),
			time.Duration(cfg.WarmIntervalSec)*time.Second,
			cfg.WarmTopKeywords,
			logger,
		)
		go warmer.Run(warmCtx)
		logger.Info().Int("interval_sec", cfg.WarmIntervalSec).Msg("cache warmer started")
	}

	// 13. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	}))

	// Public routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"suggest-gateway"}`))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/v1/suggest", handler.HandleSuggest)
		r.Get("/v1/providers", handler.HandleProviders)
		r.Get("/v1/usage", handler.HandleUsage)
	})

	// 14. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("suggest gateway starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-quit
	logger.Info().Msg("shutting down gracefully")
	stopWarmer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}
