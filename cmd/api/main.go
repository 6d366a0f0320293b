package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edlume/authtrail/internal/auth"
	"github.com/edlume/authtrail/internal/background"
	"github.com/edlume/authtrail/internal/config"
	"github.com/edlume/authtrail/internal/database"
	"github.com/edlume/authtrail/internal/handlers"
	middlewareCustom "github.com/edlume/authtrail/internal/middleware"
	"github.com/edlume/authtrail/internal/repositories"
	"github.com/edlume/authtrail/internal/routes"
	"github.com/edlume/authtrail/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.RunMigrations(migrateCtx); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize repository
	attemptRepo := repositories.NewAttemptRepository(db)

	// Suspicious-attempt alerting (optional)
	var notifier services.SuspicionNotifier
	if cfg.Alert.Enabled {
		alertService, err := services.NewAlertService(
			cfg.Alert.AWSRegion,
			cfg.Alert.FromAddress,
			cfg.Alert.SecurityAddress,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize alert service", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = alertService
	}

	// Initialize services
	classifier := services.NewClassifier(attemptRepo, cfg.Classifier, logger)
	ingestService := services.NewIngestService(attemptRepo, classifier, notifier, logger)
	analyticsService := services.NewAnalyticsService(attemptRepo)

	// Retention manager
	retentionManager := background.NewRetentionManager(
		attemptRepo, logger, cfg.Retention.Window, cfg.Retention.SweepInterval)

	// Token manager for API callers
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	// Initialize handlers
	attemptHandler := handlers.NewAttemptHandler(ingestService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, attemptHandler, analyticsHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start retention sweep
	retentionCtx, retentionCancel := context.WithCancel(context.Background())
	defer retentionCancel()

	go retentionManager.Start(retentionCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	retentionCancel()
	retentionManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
