package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-arena/internal/arena"
	"agent-arena/pkg/api"
	"agent-arena/pkg/auth"
	"agent-arena/pkg/config"
	"agent-arena/pkg/db"
	"agent-arena/pkg/events"
	"agent-arena/pkg/logger"
	"agent-arena/pkg/ratelimit"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.LogToFile {
		logger.InitWithFileLogging(cfg.LogLevel, logger.Arena)
	} else {
		logger.Init(cfg.LogLevel)
	}
	defer logger.Close()

	startupLogger := logger.NewCategoryLogger(cfg.LogLevel, logger.Arena, logger.Startup, cfg.LogToFile)
	startupLogger.Info().Msg("Starting Agent Arena")

	// Initialize database
	database, err := db.NewArenaDB(cfg.DatabasePath)
	if err != nil {
		startupLogger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close()
	startupLogger.Info().Str("db_path", cfg.DatabasePath).Msg("Database initialized successfully")

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.SeedPrograms(seedCtx, db.DefaultPrograms()); err != nil {
		startupLogger.Fatal().Err(err).Msg("Failed to seed training programs")
	}
	seedCancel()

	// Initialize HMAC authentication
	secrets := cfg.GetSecrets()
	hmacAuth := auth.NewHMACAuth(secrets, cfg.GetClockSkew())
	startupLogger.Info().Int("secret_count", len(secrets)).Msg("HMAC authentication initialized")

	limiter, closeLimiter := newLimiter(cfg, startupLogger)
	defer closeLimiter()

	publisher := newPublisher(cfg, startupLogger)
	defer publisher.Close()

	// Initialize service
	service := arena.NewService(cfg, database, limiter, publisher)
	startupLogger.Info().Msg("Arena service initialized")

	router := newRouter(cfg, service, database, hmacAuth)

	server := &http.Server{
		Addr:         cfg.GetArenaAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		startupLogger.Info().Str("address", cfg.GetArenaAddr()).Msg("Arena server starting")

		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			startupLogger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	stopBridge := startBridgeIfEnabled(service, cfg)

	// Start background maintenance
	bgCtx, stopBackground := context.WithCancel(context.Background())
	go cleanupNonces(bgCtx, database, cfg)
	if mem, ok := limiter.(*ratelimit.Memory); ok {
		go sweepLimiter(bgCtx, mem, cfg)
	}
	startupLogger.Info().Msg("Background maintenance routines started")

	// Wait for interrupt signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	startupLogger.Info().Msg("Shutdown signal received")
	stopBackground()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if stopBridge != nil {
		if err := stopBridge(ctx); err != nil {
			startupLogger.Error().Err(err).Msg("gRPC bridge shutdown error")
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		startupLogger.Error().Err(err).Msg("Server shutdown error")
	}

	startupLogger.Info().Msg("Arena server stopped")

	if err := logger.CleanupOldLogs(cfg.LogRetentionDays); err != nil {
		startupLogger.Warn().Err(err).Msg("Failed to cleanup old log files")
	}
	if stats, err := logger.GetLogStats(); err == nil {
		startupLogger.Debug().Interface("log_files", stats).Msg("Log files retained")
	}
}

// newRouter wires health checks and the API behind the shared middleware.
func newRouter(cfg *config.Config, service *arena.Service, database *db.ArenaDB, hmacAuth *auth.HMACAuth) *mux.Router {
	middleware := api.NewMiddleware(hmacAuth, database)

	router := mux.NewRouter()
	router.Use(middleware.RequestLogging)
	router.Use(middleware.SizeLimit)
	router.Use(middleware.CORS)

	// Health endpoints (no auth required)
	router.HandleFunc("/healthz", api.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/readyz", api.ReadinessCheck(database)).Methods(http.MethodGet)

	arena.NewHandler(service, cfg.LogLevel, cfg.LogToFile).Register(router, middleware)

	return router
}

// newLimiter uses Redis when REDIS_URL is set and falls back to memory
// when it is unset or unreachable.
func newLimiter(cfg *config.Config, lg zerolog.Logger) (ratelimit.Limiter, func()) {
	if cfg.RedisURL == "" {
		lg.Info().Msg("Using in-memory rate limiter")
		return ratelimit.NewMemory(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	limiter, err := ratelimit.NewRedisFromURL(ctx, cfg.RedisURL, "arena:ratelimit:")
	if err != nil {
		lg.Error().Err(err).Msg("Failed to connect to Redis, using in-memory rate limiter")
		return ratelimit.NewMemory(), func() {}
	}

	lg.Info().Msg("Using Redis rate limiter")
	return limiter, func() {
		if err := limiter.Close(); err != nil {
			lg.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}

// newPublisher uses NATS when NATS_URL is set; events are dropped otherwise.
func newPublisher(cfg *config.Config, lg zerolog.Logger) events.Publisher {
	if cfg.NATSURL == "" {
		lg.Info().Msg("Event publishing disabled")
		return events.Nop{}
	}

	publisher, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix)
	if err != nil {
		lg.Error().Err(err).Msg("Failed to connect to NATS, event publishing disabled")
		return events.Nop{}
	}

	lg.Info().Str("subject_prefix", cfg.NATSSubjectPrefix).Msg("Publishing events to NATS")
	return publisher
}

func cleanupNonces(ctx context.Context, database *db.ArenaDB, cfg *config.Config) {
	cleanupLogger := logger.NewCategoryLogger(cfg.LogLevel, logger.Arena, logger.General, cfg.LogToFile)

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// nonces older than 2x clock skew can no longer be replayed
			olderThan := time.Now().Add(-2 * cfg.GetClockSkew())
			if err := database.CleanupOldNonces(olderThan); err != nil {
				cleanupLogger.Error().Err(err).Msg("Failed to cleanup old nonces")
			} else {
				cleanupLogger.Debug().Msg("Cleaned up old nonces")
			}
		}
	}
}

func sweepLimiter(ctx context.Context, limiter *ratelimit.Memory, cfg *config.Config) {
	sweepLogger := logger.NewCategoryLogger(cfg.LogLevel, logger.Arena, logger.General, cfg.LogToFile)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := limiter.Sweep(); removed > 0 {
				sweepLogger.Debug().Int("removed", removed).Msg("Swept expired rate limit windows")
			}
		}
	}
}
