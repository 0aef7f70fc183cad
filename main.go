package main

import (
	"os"
	"os/signal"
	"syscall"

	"tokoauth/internal/app"
	"tokoauth/internal/database"
	"tokoauth/internal/services"
	"tokoauth/pkg/config"
	"tokoauth/pkg/logger"
	"tokoauth/pkg/rabbitmq"

	"github.com/rs/zerolog"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{Env: "development"})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close(db)

	// --- Events (optional) ---
	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize RabbitMQ client")
		}
		defer mqClient.Close()
		events = mqClient
		startAuditConsumer(mqClient, log)
	} else {
		log.Info().Msg("RABBITMQ_URL not set, user events disabled")
	}

	// --- Application (runs the bootstrap seeder) ---
	application, err := app.New(cfg, db, events, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start application")
	}

	// --- Start HTTP Server ---
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := application.Fiber.Listen(cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	if err := application.Fiber.Shutdown(); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}

// startAuditConsumer logs every user event published on the queue.
func startAuditConsumer(client *rabbitmq.Client, log zerolog.Logger) {
	err := client.ConsumeUserEvents(func(ev rabbitmq.UserEvent) error {
		log.Info().
			Str("event", ev.Event).
			Time("occurred_at", ev.OccurredAt).
			Interface("payload", ev.Payload).
			Msg("audit")
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to start user event consumer")
	}
}
