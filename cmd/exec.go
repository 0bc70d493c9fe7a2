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

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"turn-dispatch/config"
	"turn-dispatch/internal/handlers"
	"turn-dispatch/internal/services"
	"turn-dispatch/internal/snapshot"
	"turn-dispatch/monitoring"
	"turn-dispatch/security"
	"turn-dispatch/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	if cfg.VipSecret == "" && cfg.VipSecretBcrypt == "" {
		if cfg.Environment != "development" {
			return errors.New("VIP_SECRET or VIP_SECRET_BCRYPT must be configured")
		}
		secret, err := utils.GenerateCode(8)
		if err != nil {
			return err
		}
		cfg.VipSecret = secret
		log.Printf("Generated development VIP secret: %s", secret)
	}

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey

		pn = pubnub.NewPubNub(pnConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Snapshot backend
	var snap snapshot.Snapshotter
	switch cfg.SnapshotBackend {
	case "file":
		snap = snapshot.NewFileSnapshotter(cfg.SnapshotPath)
	default:
		snap = snapshot.NewRedisSnapshotter(redisClient, cfg.SnapshotKey)
	}

	// Initialize services
	store := services.NewTicketStore(ctx, snap)
	validator := services.NewValidator(cfg.VipSecret, cfg.VipSecretBcrypt)
	dispatchService := services.NewDispatchService(store, pn)
	queryService := services.NewQueryService(store, cfg.UpcomingPreviewLimit)
	turnService := services.NewTurnService(validator, store, dispatchService, queryService, pn)

	monitor := monitoring.NewMonitor(store.Counts)
	defer monitor.Stop()

	// Initialize handlers
	turnHandler := handlers.NewTurnHandler(app, turnService)
	adminHandler := handlers.NewAdminHandler(app, turnService)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.SubmitRateLimit, cfg.SubmitRateWindow)

	// Setup graceful shutdown
	go handleShutdown(cancel, store)

	if cfg.EnableMetrics {
		go serveMetrics(cfg.MetricsPort)
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Turn endpoints
		e.Router.POST("/api/v1/turns", turnHandler.Submit).BindFunc(rateLimiter.SubmitGuard)
		e.Router.POST("/api/v1/turns/dispatch", turnHandler.DispatchNext)
		e.Router.GET("/api/v1/turns/status", turnHandler.Status)
		e.Router.GET("/api/v1/turns/{id}", turnHandler.Lookup)

		// Admin endpoints
		e.Router.GET("/api/v1/admin/queue-details", adminHandler.GetQueueDetails)
		e.Router.POST("/api/v1/admin/snapshot", adminHandler.ForceSnapshot)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	return app.Start()
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("Metrics server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		slog.Error("metrics server stopped", "error", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc, store *services.TicketStore) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")

	if err := store.Snapshot(context.Background()); err != nil {
		slog.Error("final snapshot failed", "error", err)
	}

	cancel()
}
