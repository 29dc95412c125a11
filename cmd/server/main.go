package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agenthive/proxy-server-go/internal/config"
	"github.com/agenthive/proxy-server-go/internal/database"
	"github.com/agenthive/proxy-server-go/internal/handler"
	"github.com/agenthive/proxy-server-go/internal/middleware"
	"github.com/agenthive/proxy-server-go/internal/redis"
	"github.com/agenthive/proxy-server-go/internal/repository"
	"github.com/agenthive/proxy-server-go/internal/service"
	"github.com/agenthive/proxy-server-go/internal/upstream"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_URL not set, proxy rate limiting disabled")
	}

	accountRepo := repository.NewAccountRepository(db.DB)
	agentRepo := repository.NewAgentRepository(db.DB)
	licenseRepo := repository.NewLicenseRepository(db.DB)
	planRepo := repository.NewPlanRepository(db.DB)
	usageRepo := repository.NewUsageRepository(db.DB)
	earningsRepo := repository.NewEarningsRepository(db.DB)
	jobRepo := repository.NewJobRepository(db.DB)
	jobRunRepo := repository.NewJobRunRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)

	licenseService := service.NewLicenseService(licenseRepo, planRepo, agentRepo)
	settlementService := service.NewSettlementService(
		db, accountRepo, agentRepo, licenseRepo, usageRepo, earningsRepo, cfg.PlatformFeeBps,
	)

	upstreamClient := upstream.NewClient(cfg.UpstreamURL, config.UpstreamTimeout)

	authMiddleware := middleware.NewAuthMiddleware(accountRepo)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	proxyHandler := handler.NewProxyHandler(
		licenseService, settlementService, accountRepo, upstreamClient, cfg.EncryptionKey,
	)
	jobHandler := handler.NewJobHandler(jobRepo, jobRunRepo, agentRepo, licenseRepo)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	// No request timeout here: proxied generations can run for minutes. The
	// upstream client timeout bounds them instead.
	r.Route("/proxy/v1", func(r chi.Router) {
		if redisClient != nil {
			rateLimitMiddleware := middleware.NewProxyRateLimitMiddleware(redisClient.Client)
			r.Use(rateLimitMiddleware.Handler)
		}
		r.Post("/messages", proxyHandler.Messages)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(authMiddleware.Handler)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobHandler.Create)
			r.Get("/", jobHandler.List)
			r.Get("/{jobID}", jobHandler.Get)
			r.Patch("/{jobID}", jobHandler.UpdateStatus)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Get("/unread-count", notificationHandler.UnreadCount)
			r.Post("/{notificationID}/read", notificationHandler.MarkRead)
			r.Post("/read-all", notificationHandler.MarkAllRead)
		})
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
