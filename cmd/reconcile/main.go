// Command reconcile runs reconciliation passes outside the API server, for cron or manual recovery.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkly/internal/notifications"
	"parkly/internal/reconciliation"
	"parkly/internal/reservations"
	"parkly/internal/shared/config"
	"parkly/internal/shared/constants"
	"parkly/internal/shared/database"
	"parkly/internal/shared/txn"
	"parkly/internal/spaces"
	"parkly/internal/tickets"
	"parkly/pkg/cache"
	"parkly/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	watch := flag.Bool("watch", false, "keep sweeping on RECONCILE_INTERVAL until interrupted")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	jobsLogger, closer := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Channel: logger.ChannelJobs, Dir: cfg.LogDir})
	defer closer.Close()

	db, err := database.InitDB(cfg, jobsLogger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	publisher, err := notifications.NewPublisher(cfg.Events, jobsLogger)
	if err != nil {
		jobsLogger.Warn("event publisher unavailable, events will be dropped", "error", err.Error())
		publisher = notifications.NoopPublisher{}
	}
	defer publisher.Close()

	pg := db.GetPostgreSQL()
	deps := reconciliation.Dependencies{
		Store:        reconciliation.NewRepository(pg),
		Reservations: reservations.NewRepository(pg),
		Tickets:      tickets.NewRepository(pg),
		Transactor:   txn.NewTransactor(pg),
		Availability: spaces.NewService(spaces.NewRepository(pg), cache.NewService(db.GetRedisClient(), jobsLogger), cfg.Redis.AvailabilityTTL, jobsLogger),
		Publisher:    publisher,
		Logger:       jobsLogger,
		Config:       cfg.Reconciliation,
	}
	if rdb := db.GetRedisClient(); rdb != nil {
		deps.Lease = cache.NewLease(rdb, constants.LOCK_KEY_RECONCILIATION, cfg.Reconciliation.LeaseTTL)
	}
	scheduler := reconciliation.NewScheduler(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		scheduler.Start(ctx)
		<-ctx.Done()
		scheduler.Stop()
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	result, err := scheduler.RunOnce(runCtx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	if err != nil {
		log.Fatalf("Reconciliation finished with errors: %v", err)
	}
}
