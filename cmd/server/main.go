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

	"github.com/journal-portal/backend/internal/config"
	delivery "github.com/journal-portal/backend/internal/delivery/http"
	"github.com/journal-portal/backend/internal/middleware"
	"github.com/journal-portal/backend/internal/repository/postgres"
	"github.com/journal-portal/backend/internal/storage"
	"github.com/journal-portal/backend/internal/telemetry"
	"github.com/journal-portal/backend/internal/usecase"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Journal Portal Backend Starting...")

	// Load configuration
	cfg := config.Load()
	log.Printf("Server configured on port %s", cfg.Server.Port)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	shutdownMetrics, err := telemetry.Init(cfg.Telemetry.Stdout, cfg.Telemetry.Interval)
	if err != nil {
		log.Fatalf("Failed to initialise telemetry: %v", err)
	}

	// Connect to PostgreSQL with retry
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout+5*time.Second)
	pool, err := postgres.Connect(connectCtx, cfg.Database.URL, cfg.Database.ConnectTimeout)
	cancel()
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize repositories and storage
	store := postgres.NewStore(pool)
	repos := store.Repositories()
	files := storage.NewOSFileStore(cfg.Media.Root)

	// Initialize usecases
	metrics := usecase.NewSyncMetrics()
	clients := usecase.NewClientFactory(cfg.OJS.ClientOptions(logger)...)
	authUsecase := usecase.NewAuthUsecase(store.Users(), &cfg.JWT)
	importUsecase := usecase.NewImportUsecase(repos.Journals, store, clients, files, metrics, logger)
	exportUsecase := usecase.NewExportUsecase(repos, clients, files, metrics, logger)
	progress := usecase.NewProgressCache(0, cfg.Progress.TTL)

	// Initialize HTTP handler and middleware
	handler := delivery.NewHandler(authUsecase, importUsecase, exportUsecase, progress, logger)
	authMiddleware := middleware.NewAuthMiddleware(authUsecase)

	// Create router
	router := delivery.NewRouter(handler, authMiddleware, cfg.CORS.AllowedOrigins)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println()
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.Printf("Telemetry shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
