package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"foodflow-backend/internal/cache"
	"foodflow-backend/internal/cart"
	"foodflow-backend/internal/config"
	"foodflow-backend/internal/database"
	"foodflow-backend/internal/handlers"
	"foodflow-backend/internal/services"
	"foodflow-backend/internal/session"
	"foodflow-backend/internal/tracking"
	"foodflow-backend/internal/websocket"

	"github.com/shopspring/decimal"
)

const banner = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func fatal(title string, err error, hints ...string) {
	log.Println(banner)
	log.Printf("❌ FATAL ERROR: %s", title)
	log.Printf("   Error: %v", err)
	for _, hint := range hints {
		log.Println("   " + hint)
	}
	log.Println(banner)
	log.Fatal(err)
}

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 FOODFLOW BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("📂 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		fatal("Invalid configuration", err, "Check DATABASE_URL, APP_JWT_SECRET and SNAPSHOT_BACKEND in Railway Variables or .env file")
	}
	log.Printf("✅ Configuration loaded (snapshot backend: %s)", cfg.SnapshotBackend)

	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		fatal("Database connection failed", err,
			"This is usually caused by:",
			"1. Wrong DATABASE_URL format",
			"2. PostgreSQL service is down",
			"3. Network connectivity issue",
			"4. Invalid credentials",
		)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		fatal("Database migrations failed", err)
	}
	log.Println("✅ Database migrations completed")

	log.Println("🌱 Seeding database with demo accounts...")
	if err := database.SeedUsers(ctx, db); err != nil {
		fatal("User seeding failed", err)
	}
	log.Println("✅ Users seeded successfully")

	var store session.Store
	switch cfg.SnapshotBackend {
	case config.BackendRedis:
		log.Println("🔌 Connecting to Redis...")
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			fatal("Redis connection failed", err, "Check REDIS_URL or switch SNAPSHOT_BACKEND to postgres")
		}
		defer client.Close()
		store = cache.NewRedisSnapshotStore(client)
		log.Println("✅ Cart/tracking snapshots stored in Redis")
	default:
		store = database.NewSnapshotStore(db)
		log.Println("✅ Cart/tracking snapshots stored in PostgreSQL")
	}

	fees, err := cfg.CartFees()
	if err != nil {
		fatal("Invalid cart fees", err)
	}
	trackerOpts := cfg.TrackerOptions()

	sessions := session.NewManager(store,
		func() *cart.Engine { return cart.NewEngine(cart.WithFees(fees)) },
		func() *tracking.Aggregator { return tracking.NewAggregator(trackerOpts...) },
	)
	log.Printf("✅ Session manager ready (delivery fee %s, service fee rate %s, tax rate %s)",
		fees.DeliveryFee, fees.ServiceFeeRate, fees.TaxRate)

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials (for Railway/cloud deployments)
	var notifier services.Notifier
	if cfg.FirebaseCredentialsBase64 != "" {
		fcmService, err := services.NewFCMServiceFromBase64(ctx, cfg.FirebaseCredentialsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
		} else {
			notifier = fcmService
			log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		}
	} else {
		fcmService, err := services.NewFCMService(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
		} else {
			notifier = fcmService
			log.Println("✅ Firebase Cloud Messaging initialized from file")
		}
	}

	repo := database.NewRepository(db)

	wsHub := websocket.NewHub()
	locations := services.NewLocationService(sessions, repo, repo, wsHub)
	wsHub.SetIngester(locations)
	go wsHub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	deliveries := services.NewDeliveryService(repo, sessions, wsHub, notifier, repo)

	go sessions.Run(ctx, cfg.SessionSweepInterval, cfg.SessionIdleTTL)
	log.Printf("✅ Session sweeper started (every %s, idle after %s)", cfg.SessionSweepInterval, cfg.SessionIdleTTL)

	router := handlers.NewRouter(handlers.Deps{
		JWTSecret:   cfg.JWTSecret,
		Display:     handlers.Display{Currency: cfg.Currency, Locale: cfg.Locale},
		Sessions:    sessions,
		Users:       repo,
		Assignments: repo,
		Locations:   repo,
		Ingest:      locations,
		Deliveries:  deliveries,
		Hub:         wsHub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Graceful shutdown failed: %v", err)
		}
	}()

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Printf("✅ SERVER READY - Listening on port %s", cfg.Port)
	log.Printf("🌐 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("🔌 WebSocket: ws://localhost:%s/ws", cfg.Port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("Server failed to start", err)
	}
	log.Println("👋 Server stopped")
}
