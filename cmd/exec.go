package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-finder/config"
	"shop-finder/internal/appointments"
	"shop-finder/internal/estimator"
	"shop-finder/internal/handlers"
	"shop-finder/internal/realtime"
	"shop-finder/internal/scoring"
	"shop-finder/internal/services"
	"shop-finder/internal/shops"
	"shop-finder/internal/store"
	"shop-finder/monitoring"
	"shop-finder/security"
	"shop-finder/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Realtime: PubNub when keyed, otherwise an in-process hub
	var (
		publisher realtime.Publisher
		updates   realtime.Source
	)
	if cfg.PubNubEnabled() {
		pn := realtime.NewPubNub(realtime.PubNubConfig{
			PublishKey:   cfg.PubNubPublishKey,
			SubscribeKey: cfg.PubNubSubscribeKey,
			SecretKey:    cfg.PubNubSecretKey,
			UserID:       cfg.PubNubUserID,
		})
		publisher = realtime.NewPubNubPublisher(pn)
		updates = realtime.NewPubNubSubscriber(pn)
		log.Println("Realtime updates via PubNub")
	} else {
		hub := realtime.NewHub(64)
		publisher, updates = hub, hub
		log.Println("Realtime updates in-process, PubNub keys not set")
	}

	clock := cfg.Clock()

	// Stores and snapshot source
	queueStore := store.NewQueueStore(redisClient)
	availabilityStore := store.NewAvailabilityStore(redisClient)

	breaker := utils.NewCircuitBreakerWithSettings("snapshots", utils.BreakerSettings{
		MinRequests:    20,
		Interval:       time.Minute,
		OpenTimeout:    cfg.BreakerOpenTimeout,
		FailureRatio:   0.6,
		HalfOpenProbes: 3,
		OnStateChange: func(name string, from, to utils.State) {
			monitoring.SetBreakerState(name, int(to))
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	source := services.NewGuardedSource(store.NewSnapshots(queueStore, availabilityStore), breaker, cfg.FetchTimeout)

	// Initialize services
	shopRepo := shops.NewRepository(app)
	queueService := services.NewQueueService(queueStore, estimator.New(clock), publisher)
	availabilityService := services.NewAvailabilityService(availabilityStore, publisher, clock)
	discoveryService := services.NewDiscoveryService(shopRepo, scoring.NewScorer(source, clock), updates, cfg.DefaultMaxWaitMinutes, clock)
	appointmentService := appointments.NewService(app)

	// Initialize handlers
	shopHandler := handlers.NewShopHandler(discoveryService)
	queueHandler := handlers.NewQueueHandler(queueService)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	adminHandler := handlers.NewAdminHandler(queueService)
	limiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		TemplateLang: migratecmd.TemplateLangGo,
		Automigrate:  cfg.IsDevelopment(),
	})

	app.RootCmd.AddCommand(newSeedCommand(app, shopRepo, availabilityService, queueService))

	shops.BindHooks(app, publisher)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		go syncShopsToRedis(ctx, shopRepo, availabilityService)

		if cfg.EnableMetrics {
			go monitoring.NewMonitor(queueStore, cfg.MetricsInterval).Run(ctx)
			go func() {
				if err := monitoring.Serve(ctx, cfg.MetricsPort); err != nil {
					slog.Error("metrics server stopped", "error", err)
				}
			}()
		}

		go func() {
			err := shopHandler.StreamRecommendations(ctx, app)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("recommendation stream stopped", "error", err)
			}
		}()

		api := e.Router.Group("/api/v1")

		// Shop endpoints
		api.GET("/shops/recommendations", shopHandler.GetRecommendations).BindFunc(security.AntiBot)
		api.GET("/shops/{shopId}/alternatives", shopHandler.GetAlternatives).BindFunc(security.AntiBot)

		// Queue endpoints
		api.GET("/queue/{shopId}", queueHandler.GetQueue)
		api.GET("/queue/{shopId}/estimate", queueHandler.GetEstimate)
		api.POST("/queue/{shopId}/enter", queueHandler.EnterQueue).BindFunc(limiter.Limit("queue_enter"))
		api.POST("/queue/{shopId}/entries/{entryKey}/status", queueHandler.UpdateEntryStatus).BindFunc(limiter.Limit("queue_status"))

		// Availability endpoints
		api.GET("/availability/{shopId}", availabilityHandler.GetAvailability)
		api.PATCH("/availability/{shopId}/services/{serviceId}", availabilityHandler.UpdateService)
		api.PUT("/availability/{shopId}", availabilityHandler.InitializeServices)

		// Appointment endpoints
		api.POST("/appointments", appointmentHandler.CreateAppointment).BindFunc(limiter.Limit("appointment_create"))
		api.GET("/appointments", appointmentHandler.ListAppointments)
		api.POST("/appointments/{id}/cancel", appointmentHandler.CancelAppointment).BindFunc(limiter.Limit("appointment_cancel"))
		api.POST("/appointments/{id}/status", appointmentHandler.UpdateAppointmentStatus)

		// Admin endpoints
		api.GET("/admin/queue-dashboard", adminHandler.GetQueueDashboard)
		api.POST("/admin/queue/{shopId}/entries/{entryKey}/remove", adminHandler.RemoveFromQueue)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			return healthCheck(e, redisClient, breaker)
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func healthCheck(e *core.RequestEvent, redisClient *redis.Client, breaker *utils.CircuitBreaker) error {
	if err := utils.RedisHealthCheck(e.Request.Context(), redisClient); err != nil {
		return e.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	state := breaker.State()
	if state == utils.StateOpen {
		return e.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"breaker": state.String(),
		})
	}
	return e.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"breaker": state.String(),
	})
}

// syncShopsToRedis opens every service of shops that have no availability
// in Redis yet, so a fresh deployment scores them right away.
func syncShopsToRedis(ctx context.Context, shopRepo *shops.Repository, availabilityService *services.AvailabilityService) {
	list, err := shopRepo.List(ctx)
	if err != nil {
		log.Printf("Error fetching shops: %v", err)
		return
	}

	synced := 0
	for _, shop := range list {
		current, err := availabilityService.Get(ctx, shop.ID)
		if err != nil {
			slog.Error("Failed to read availability", "shopID", shop.ID, "error", err)
			continue
		}
		if current != nil || len(shop.Services) == 0 {
			continue
		}

		if _, err := availabilityService.Initialize(ctx, shop.ID, services.DefaultServiceStatuses(shop.Services, defaultCapacity)); err != nil {
			slog.Error("Failed to initialize availability", "shopID", shop.ID, "error", err)
			continue
		}
		synced++
	}

	log.Printf("Synced availability for %d of %d shops", synced, len(list))
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
