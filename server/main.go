package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkly/api/routes"
	"parkly/internal/notifications"
	"parkly/internal/shared/config"
	"parkly/internal/shared/database"
	"parkly/internal/shared/middleware"
	"parkly/pkg/logger"
	"parkly/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Smart environment loading
	envErr := godotenv.Load()

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	appLogger, websiteLog := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Channel: logger.ChannelWebsite, Dir: cfg.LogDir})
	defer websiteLog.Close()
	jobsLogger, jobsLog := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Channel: logger.ChannelJobs, Dir: cfg.LogDir})
	defer jobsLog.Close()
	logger.SetDefault(appLogger)

	if envErr != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	if err := cfg.Validate(); err != nil {
		appLogger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.InitDB(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	publisher, err := notifications.NewPublisher(cfg.Events, appLogger)
	if err != nil {
		appLogger.Error("event publisher unavailable, events will be dropped",
			slog.String("driver", cfg.Events.Driver), slog.Any("error", err))
		publisher = notifications.NoopPublisher{}
	}

	appRouter, err := routes.NewRouter(cfg, db, appLogger, jobsLogger, publisher, Version)
	if err != nil {
		appLogger.Error("failed to build services", slog.Any("error", err))
		os.Exit(1)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	consumer := startEmailConsumer(rootCtx, cfg, appRouter, appLogger)

	scheduler := appRouter.Scheduler()
	if cfg.Reconciliation.Enabled {
		scheduler.Start(rootCtx)
	} else {
		appLogger.Info("Reconciliation scheduler disabled")
	}

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.GetRedisClient() != nil {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			AuthRequests:    cfg.RateLimit.AuthRequests,
			BookingRequests: cfg.RateLimit.BookingRequests,
			PaymentRequests: cfg.RateLimit.PaymentRequests,
			ScanRequests:    cfg.RateLimit.ScanRequests,
			AdminRequests:   cfg.RateLimit.AdminRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        setupEngine(cfg, appRouter, rateLimiter, appLogger),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.Bool("redis", db.GetRedisClient() != nil),
			slog.String("payment_provider", cfg.Payment.Provider),
			slog.String("events_driver", cfg.Events.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	scheduler.Stop()
	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			appLogger.Error("Error stopping event consumer", slog.Any("error", err))
		}
	}
	if err := publisher.Close(); err != nil {
		appLogger.Error("Error closing event publisher", slog.Any("error", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

// startEmailConsumer runs the e-mail dispatcher off the Kafka stream when both are configured
func startEmailConsumer(ctx context.Context, cfg *config.Config, appRouter *routes.Router, log *logger.Logger) *notifications.KafkaConsumer {
	if cfg.Events.Driver != "kafka" {
		return nil
	}
	sender, err := notifications.NewEmailSender(cfg.Email)
	if err != nil {
		log.Error("Email sender misconfigured, notifications disabled", slog.Any("error", err))
		return nil
	}
	if sender == nil {
		log.Info("Email provider not configured, notifications disabled")
		return nil
	}

	dispatcher := notifications.NewDispatcher(appRouter.Recipients(), sender, log)
	consumer, err := notifications.NewKafkaConsumer(notifications.ConsumerConfig{
		Brokers: cfg.Events.KafkaBrokers,
		GroupID: cfg.Events.ConsumerGroup,
		Topic:   cfg.Events.KafkaTopic,
	}, dispatcher, log)
	if err != nil {
		log.Error("Failed to start event consumer", slog.Any("error", err))
		return nil
	}
	consumer.Start(ctx)
	log.Info("Email notifications consumer started", slog.Any("topics", dispatcher.Topics()))
	return consumer
}

func setupEngine(cfg *config.Config, appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter, log *logger.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.RequestLogger(log), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, log))
	}

	appRouter.SetupRoutes(engine)
	return engine
}
