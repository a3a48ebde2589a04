package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burnbook/burnbook/internal/analysis"
	"github.com/burnbook/burnbook/internal/api"
	"github.com/burnbook/burnbook/internal/archive"
	"github.com/burnbook/burnbook/internal/config"
	"github.com/burnbook/burnbook/internal/ingestion"
	"github.com/burnbook/burnbook/internal/notifications"
	"github.com/burnbook/burnbook/internal/query"
	"github.com/burnbook/burnbook/internal/reddit"
	"github.com/burnbook/burnbook/internal/scheduler"
	"github.com/burnbook/burnbook/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting BurnBook sentiment service")

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	// Remote providers are optional; the deterministic local fallback
	// covers every capability when they are not configured.
	var provider analysis.Provider
	if cfg.AzureAIEndpoint != "" && cfg.AzureAIKey != "" {
		provider = analysis.NewAzureProvider(cfg.AzureAIEndpoint, cfg.AzureAIKey)
		logrus.Info("Azure AI sentiment provider configured")
	} else {
		logrus.Info("Azure AI not configured, using keyword analyzer only")
	}
	analyzer := analysis.NewAnalyzer(provider)

	var arch archive.Archive
	switch {
	case cfg.StorageAccount != "":
		arch, err = archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize listing archive: %v", err)
		}
	case cfg.ArchiveDir != "":
		arch, err = archive.NewLocalArchive(cfg.ArchiveDir)
		if err != nil {
			logrus.Fatalf("Failed to initialize listing archive: %v", err)
		}
	}

	var notifier ingestion.Notifier
	if cfg.TeamsWebhookURL != "" || cfg.NotificationEmail != "" {
		notifier = notifications.NewService(cfg)
	}

	ingestionService := ingestion.NewService(st, reddit.NewClient(), analyzer, arch, notifier)
	if err := ingestionService.RecoverInterruptedJobs(ctx); err != nil {
		logrus.Errorf("Failed to recover interrupted jobs: %v", err)
	}

	var generator query.AnswerGenerator
	if cfg.AzureOpenAIEndpoint != "" && cfg.AzureOpenAIKey != "" {
		generator = query.NewAzureOpenAIAnswerer(cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIKey, cfg.AzureOpenAIDeployment)
		logrus.Info("Azure OpenAI answer generator configured")
	}
	queryService := query.NewService(st, query.NewFallbackAnswerer(generator))

	schedulerService := scheduler.NewService(st, cfg.SummaryRefreshSchedule)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	apiServer := api.NewServer(ingestionService, analyzer, queryService)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
