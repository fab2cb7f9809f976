package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/consult-api/internal/config"
	"github.com/jwalitptl/consult-api/internal/email"
	consultationHandler "github.com/jwalitptl/consult-api/internal/handler/consultation"
	prometheusHandler "github.com/jwalitptl/consult-api/internal/handler/prometheus"
	providerHandler "github.com/jwalitptl/consult-api/internal/handler/provider"
	"github.com/jwalitptl/consult-api/internal/meeting"
	"github.com/jwalitptl/consult-api/internal/repository/postgres"
	"github.com/jwalitptl/consult-api/internal/router"
	availabilityService "github.com/jwalitptl/consult-api/internal/service/availability"
	bookingService "github.com/jwalitptl/consult-api/internal/service/booking"
	consultationService "github.com/jwalitptl/consult-api/internal/service/consultation"
	notificationService "github.com/jwalitptl/consult-api/internal/service/notification"
	providerService "github.com/jwalitptl/consult-api/internal/service/provider"
	ratingService "github.com/jwalitptl/consult-api/internal/service/rating"
	"github.com/jwalitptl/consult-api/internal/worker"
	"github.com/jwalitptl/consult-api/pkg/logger"
	redisbroker "github.com/jwalitptl/consult-api/pkg/messaging/redis"
	"github.com/jwalitptl/consult-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("consult", "api")

	providerRepo := postgres.NewProviderRepository(db)
	clientRepo := postgres.NewClientRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	meetingClient := meeting.NewHTTPClient(meeting.ClientConfig{
		BaseURL: cfg.Meeting.BaseURL,
		APIKey:  cfg.Meeting.APIKey,
		Timeout: cfg.Meeting.Timeout,
	}, m)

	notifier := notificationService.NewService(outboxRepo, appLogger)
	availabilitySvc := availabilityService.NewService(providerRepo, bookingRepo)
	providerSvc := providerService.NewService(providerRepo, appLogger)
	ratingAgg := ratingService.NewAggregator(providerRepo, appLogger, m)
	bookingSvc := bookingService.NewService(
		providerRepo, clientRepo, bookingRepo,
		availabilitySvc, meetingClient, notifier, appLogger, m,
	)
	consultationSvc := consultationService.NewService(
		bookingRepo, providerRepo, clientRepo,
		meetingClient, ratingAgg, notifier, appLogger, m,
	)

	providerH := providerHandler.NewHandler(providerSvc, availabilitySvc)
	consultationH := consultationHandler.NewHandler(bookingSvc, consultationSvc)
	promH := prometheusHandler.New()

	r := router.NewRouter(providerH, consultationH, promH, router.Config{
		RateLimitRPS:   cfg.Server.RateLimit,
		RateLimitBurst: cfg.Server.RateBurst,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// The API binary also drains the outbox, so a single-process
	// deployment works without the dedicated worker.
	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.Redis.URL}, appLogger.Zerolog())
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, outbox delivery disabled in API process")
	} else {
		emailSvc := email.NewService(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
		processor := worker.NewOutboxProcessor(outboxRepo, broker, emailSvc, worker.OutboxProcessorConfig{
			BatchSize:     cfg.Worker.BatchSize,
			PollInterval:  cfg.Worker.PollInterval,
			RetryAttempts: cfg.Worker.RetryAttempts,
			RetryDelay:    cfg.Worker.RetryDelay,
			Channel:       cfg.Worker.Channel,
		}, appLogger, m)
		go processor.Start(context.Background())
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
