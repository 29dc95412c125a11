package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agenthive/proxy-server-go/internal/config"
	"github.com/agenthive/proxy-server-go/internal/database"
	"github.com/agenthive/proxy-server-go/internal/mail"
	"github.com/agenthive/proxy-server-go/internal/repository"
	"github.com/agenthive/proxy-server-go/internal/upstream"
	"github.com/agenthive/proxy-server-go/internal/worker"
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

	pingCtx, pingCancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	pingCancel()
	log.Info().Msg("database connected")

	jobRepo := repository.NewJobRepository(db.DB)
	jobRunRepo := repository.NewJobRunRepository(db.DB)
	agentRepo := repository.NewAgentRepository(db.DB)
	accountRepo := repository.NewAccountRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)

	upstreamClient := upstream.NewClient(cfg.UpstreamURL, config.UpstreamTimeout)
	mailer := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPSender)

	w := worker.New(
		db, jobRepo, jobRunRepo, agentRepo, accountRepo, notificationRepo,
		upstreamClient, mailer,
		cfg.EncryptionKey, cfg.PlatformAPIKey, cfg.WorkerPollInterval(), cfg.WorkerBatchSize,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker")

	cancel()
	<-done
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
