package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/salesops/workflow/internal/archive"
	"github.com/salesops/workflow/internal/config"
	"github.com/salesops/workflow/internal/database"
	"github.com/salesops/workflow/internal/inventory"
	"github.com/salesops/workflow/internal/metrics"
	"github.com/salesops/workflow/internal/middleware"
	"github.com/salesops/workflow/internal/workflow"
	"github.com/salesops/workflow/internal/workflow/service"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
		"storage_type", cfg.Storage.Type,
		"inventory_url", cfg.Inventory.BaseURL,
	)

	slog.Info("CORS configuration",
		"allowed_origins", cfg.CORS.AllowedOrigins,
		"allowed_methods", cfg.CORS.AllowedMethods,
		"allow_credentials", cfg.CORS.AllowCredentials,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	// Decision archive
	var archiver workflow.DecisionArchiver
	driver, err := archive.NewStorageFromConfig(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize archive storage: %v", err)
	}
	if driver != nil {
		archiver = archive.NewArchiver(driver, cfg.Storage.Type, cfg.Storage.ArchivePrefix)
		slog.Info("decision archive enabled", "type", cfg.Storage.Type)
	}

	// Inventory catalog, cached in Redis when configured
	var stockCache inventory.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close redis client", "error", err)
			}
		}()
		stockCache = inventory.NewRedisCache(rdb, cfg.Inventory.CacheTTL)
	}

	var inventoryClient *inventory.Client
	var catalog service.ItemCatalog
	if cfg.Inventory.BaseURL != "" {
		inventoryClient = inventory.NewClient(cfg.Inventory, stockCache)
		catalog = inventoryClient
	} else {
		slog.Warn("INVENTORY_BASE_URL not set, item mappings are stored unchecked")
	}

	// Initialize workflow manager with database connection
	wm := workflow.NewManager(db, catalog, archiver, cfg.Workflow.NotificationBuffer)
	slog.Info("starting decision listener...")
	wm.StartDecisionListener()

	// Set up HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(db); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/mssql/inventory/stocks",
		inventory.NewHTTPHandler(inventoryClient, cfg.Inventory.MaxSearchResult).HandleGetStocks)
	wm.RegisterRoutes(mux)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	// Wrap handler with CORS and request metrics
	handler := metrics.Middleware(middleware.CORS(&cfg.CORS)(mux))

	server := &http.Server{
		Addr:              serverAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	// Archive whatever decisions are still queued
	slog.Info("stopping decision listener...")
	wm.StopDecisionListener()

	slog.Info("server stopped")
}
