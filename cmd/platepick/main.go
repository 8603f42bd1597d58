package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"platepick/internal/analyzer"
	"platepick/internal/cache"
	"platepick/internal/config"
	"platepick/internal/handlers"
	"platepick/internal/httpserver"
	"platepick/internal/httpx"
	"platepick/internal/llm"
	"platepick/internal/metrics"
	"platepick/internal/middleware"
	"platepick/internal/places"
	"platepick/pkg/logging/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("platepick exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", zap.Error(err))
		return err
	}

	logger.Info("loaded config",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("places_base_url", cfg.Places.BaseURL),
		zap.String("llm_base_url", cfg.LLM.BaseURL),
		zap.String("llm_model", cfg.LLM.Model),
	)

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.Cache.Backend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// Fail fast if redis is misconfigured.
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.Redis.Addr),
		)
	}

	// ----- Cache -----
	store := cache.NewStore(cache.Config{
		Backend: cfg.Cache.Backend,
		Prefix:  cfg.Cache.Prefix,
	}, redisClient)
	store = cache.NewLoggingStore(store)

	typedCache := cache.NewTypedCache(
		store,
		cfg.Cache.RestaurantTTL,
		cfg.Cache.AnalysisTTL,
		cfg.Cache.RecentCap,
	)

	// ----- Places client + resolver -----
	placesClient, err := places.NewClient(places.Config{
		BaseURL:     cfg.Places.BaseURL,
		APIKey:      cfg.Places.APIKey,
		Timeout:     cfg.Places.Timeout,
		MaxRetries:  cfg.Places.MaxRetries,
		BaseBackoff: cfg.Places.BaseBackoff,
	}, logger)
	if err != nil {
		return err
	}

	resolver := places.NewResolver(placesClient, nil, httpx.RetryConfig{
		MaxRetries:  cfg.Places.MaxRetries,
		BaseBackoff: cfg.Places.BaseBackoff,
	}, logger)

	// ----- LLM client + analyzer -----
	llmClient, err := llm.NewClient(llm.Config{
		BaseURL:         cfg.LLM.BaseURL,
		APIKey:          cfg.LLM.APIKey,
		UpstreamTimeout: cfg.LLM.Timeout,
		MaxRetries:      cfg.LLM.MaxRetries,
		BaseBackoff:     cfg.LLM.BaseBackoff,
	}, logger)
	if err != nil {
		return err
	}
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	dishAnalyzer := analyzer.New(llmClient, cfg.LLM.Model, analyzer.DefaultTopN, logger)

	// ----- Handlers -----
	h := handlers.New(typedCache, resolver, placesClient, dishAnalyzer, cfg.IsDevelopment())

	// ----- Rate limiter -----
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		defer limiter.Close()
	}

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, h, httpserver.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RateLimiter:    limiter,
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	logger.Info("starting platepick",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// Start server in background.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
