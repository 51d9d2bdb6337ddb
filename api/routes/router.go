package routes

import (
	"net/http"
	"time"

	"parkly/internal/admin"
	"parkly/internal/analytics"
	"parkly/internal/auth"
	"parkly/internal/cars"
	"parkly/internal/notifications"
	"parkly/internal/payments"
	"parkly/internal/reconciliation"
	"parkly/internal/reservations"
	"parkly/internal/shared/config"
	"parkly/internal/shared/constants"
	"parkly/internal/shared/database"
	"parkly/internal/shared/middleware"
	"parkly/internal/shared/txn"
	"parkly/internal/spaces"
	"parkly/internal/tickets"
	"parkly/internal/users"
	"parkly/pkg/cache"
	"parkly/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router wires repositories, services and controllers and mounts them on the engine
type Router struct {
	config    *config.Config
	db        *database.DB
	log       *logger.Logger
	publisher notifications.Publisher
	version   string

	authRepo     auth.Repository
	spaces       spaces.Service
	cars         cars.Service
	users        users.Service
	reservations reservations.Service
	tickets      tickets.Service
	payments     payments.Service
	analytics    analytics.Service
	admin        admin.Service
	scheduler    *reconciliation.Scheduler
}

// NewRouter builds every service. log is the website channel; jobsLog is handed to the scheduler.
func NewRouter(cfg *config.Config, db *database.DB, log, jobsLog *logger.Logger, publisher notifications.Publisher, version string) (*Router, error) {
	pg := db.GetPostgreSQL()
	transactor := txn.NewTransactor(pg)
	cacheService := cache.NewService(db.GetRedisClient(), log)

	gateway, err := payments.NewGateway(cfg.Payment)
	if err != nil {
		return nil, err
	}

	spaceRepo := spaces.NewRepository(pg)
	reservationRepo := reservations.NewRepository(pg)
	ticketRepo := tickets.NewRepository(pg)

	r := &Router{
		config:    cfg,
		db:        db,
		log:       log,
		publisher: publisher,
		version:   version,
		authRepo:  auth.NewRepository(pg),
	}

	r.spaces = spaces.NewService(spaceRepo, cacheService, cfg.Redis.AvailabilityTTL, log)
	r.cars = cars.NewService(cars.NewRepository(pg), cfg.Booking.MaxCarsPerUser)

	r.tickets = tickets.NewService(tickets.Dependencies{
		Repo:         ticketRepo,
		Reservations: reservationRepo,
		Transactor:   transactor,
		Signer:       tickets.NewSigner(cfg.Ticket),
		Publisher:    publisher,
		Logger:       log,
		Config:       cfg.Ticket,
	})

	r.reservations = reservations.NewService(reservations.Dependencies{
		Repo:         reservationRepo,
		Spaces:       spaceRepo,
		Availability: r.spaces,
		Cars:         r.cars,
		Credentials:  r.tickets,
		Transactor:   transactor,
		Publisher:    publisher,
		Pricing: reservations.Pricing{
			FirstHourRate:      cfg.Booking.FirstHourRate,
			AdditionalHourRate: cfg.Booking.AdditionalHourRate,
		},
		HoldWindow: cfg.Booking.HoldWindow,
		Logger:     log,
	})

	r.payments = payments.NewService(payments.Dependencies{
		Repo:         payments.NewRepository(pg),
		Reservations: reservationRepo,
		Tickets:      r.tickets,
		Gateway:      gateway,
		Transactor:   transactor,
		Publisher:    publisher,
		Logger:       log,
		Config:       cfg.Payment,
		HoldWindow:   cfg.Booking.HoldWindow,
	})

	r.users = users.NewService(users.NewRepository(pg), r.reservations)
	r.analytics = analytics.NewService(analytics.NewRepository(pg), cacheService, cfg.Booking.TotalSpaces)

	schedulerDeps := reconciliation.Dependencies{
		Store:        reconciliation.NewRepository(pg),
		Reservations: reservationRepo,
		Tickets:      ticketRepo,
		Transactor:   transactor,
		Availability: r.spaces,
		Publisher:    publisher,
		Logger:       jobsLog,
		Config:       cfg.Reconciliation,
	}
	if rdb := db.GetRedisClient(); rdb != nil {
		schedulerDeps.Lease = cache.NewLease(rdb, constants.LOCK_KEY_RECONCILIATION, cfg.Reconciliation.LeaseTTL)
	}
	r.scheduler = reconciliation.NewScheduler(schedulerDeps)
	r.admin = admin.NewService(r.scheduler, cfg.LogDir, log)

	return r, nil
}

// Scheduler is started and stopped by the server lifecycle
func (r *Router) Scheduler() *reconciliation.Scheduler {
	return r.scheduler
}

// Recipients resolves e-mail recipients for the notification dispatcher
func (r *Router) Recipients() notifications.RecipientLookup {
	return auth.NewRecipients(r.authRepo)
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	authMW := middleware.JWTAuthWithConfig(r.config)
	adminChain := []gin.HandlerFunc{authMW, middleware.RequireAdmin()}

	api := engine.Group(r.config.GetAPIBasePath())
	{
		authService := auth.NewService(r.authRepo, r.config, r.log)
		auth.SetupAuthRoutes(api, auth.NewController(authService), authMW)

		users.SetupUserRoutes(api, users.NewController(r.users), authMW)
		cars.SetupCarRoutes(api, cars.NewController(r.cars), authMW)
		spaces.SetupSpaceRoutes(api, spaces.NewController(r.spaces), adminChain...)
		reservations.SetupBookingRoutes(api, reservations.NewController(r.reservations), authMW)
		payments.SetupPaymentRoutes(api, payments.NewController(r.payments), authMW)

		adminController := admin.NewController(r.admin)
		ticketRoutes := tickets.SetupTicketRoutes(api, tickets.NewController(r.tickets), authMW, middleware.RequireScanner())
		ticketRoutes.POST("/cleanup-expired", middleware.RequireAdmin(), adminController.Cleanup)

		analytics.SetupStatisticsRoutes(api, analytics.NewController(r.analytics), authMW)
		admin.SetupAdminRoutes(api, adminController, authMW)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		checks := r.db.HealthCheck(c.Request.Context())
		if checks["postgres"] != "ok" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"checks":    checks,
				"timestamp": time.Now(),
				"service":   "parkly-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"checks":    checks,
			"timestamp": time.Now(),
			"service":   "parkly-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "operational",
			"api_version":    r.config.APIVersion,
			"version":        r.version,
			"checks":         r.db.HealthCheck(c.Request.Context()),
			"reconciliation": r.scheduler.Status(),
			"timestamp":      time.Now(),
		})
	})
}
