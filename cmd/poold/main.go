package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pool-status-backend/config"
	"pool-status-backend/internal/api"
	"pool-status-backend/internal/db"
	"pool-status-backend/internal/feed"
	"pool-status-backend/internal/forecast"
	"pool-status-backend/internal/notification"
	"pool-status-backend/internal/recorder"
	"pool-status-backend/internal/status"
	"pool-status-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	logger := log.New(os.Stdout, "pool-backend ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	loc, err := time.LoadLocation(cfg.Feed.Timezone)
	if err != nil {
		logger.Fatalf("failed to load timezone %s: %v", cfg.Feed.Timezone, err)
	}
	localNow := func() time.Time { return time.Now().In(loc) }

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	var source forecast.Source
	switch cfg.Forecast.Source {
	case "http":
		source = forecast.NewHTTPSource(cfg.Forecast.URL, cfg.Forecast.Headers)
	default:
		fsSource, err := forecast.NewFirestoreSource(ctx, cfg.Forecast.ProjectID, cfg.Forecast.Collection)
		if err != nil {
			logger.Fatalf("failed to initialize forecast source: %v", err)
		}
		defer fsSource.Close()
		source = fsSource
	}

	forecastCache := forecast.NewCache(source, appStore, cfg.Forecast.Validity, localNow)
	forecastCache.Load(ctx)

	hours := status.NewHours(cfg.Hours)

	client := feed.NewClient(cfg.Feed)

	rec := recorder.New(appStore, hours, cfg.Feed.SampleInterval, localNow)
	rec.Attach(client)

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.Feed.Facility, gormDB, &webpushOptions)
	pool.Start(ctx)
	watcher := notification.NewWatcher(pool)
	watcher.Attach(client)

	handler := api.NewHandler(appStore, client, forecastCache, hours, cfg.Feed.Facility, &webpushOptions, localNow)
	client.Subscribe(handler.BroadcastState)

	if err := client.Connect(); err != nil {
		// The client keeps retrying on its own; startup proceeds without
		// live data.
		logger.Printf("initial feed connection failed: %v", err)
	}

	router := api.NewRouter(handler, cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	client.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
