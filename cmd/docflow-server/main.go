/*-------------------------------------------------------------------------
 *
 * main.go
 *    Main entry point for DocFlow server
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/cmd/docflow-server/main.go
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/atelierflow/docflow/internal/api"
	"github.com/atelierflow/docflow/internal/approval"
	"github.com/atelierflow/docflow/internal/auth"
	"github.com/atelierflow/docflow/internal/config"
	"github.com/atelierflow/docflow/internal/db"
	"github.com/atelierflow/docflow/internal/jobs"
	"github.com/atelierflow/docflow/internal/metrics"
	"github.com/atelierflow/docflow/internal/notifications"
	"github.com/atelierflow/docflow/internal/workflow"
)

var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		showVersion    = flag.Bool("version", false, "Show version information")
		configPath     = flag.String("c", "", "Path to configuration file")
		configPathLong = flag.String("config", "", "Path to configuration file")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "DocFlow Server - document approval workflows for AtelierFlow\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    Start server with default configuration\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -c config.yaml     Start server with custom config file\n", os.Args[0])
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("docflow version %s\n", version)
		fmt.Printf("Build date: %s\n", buildDate)
		fmt.Printf("Git commit: %s\n", gitCommit)
		os.Exit(0)
	}

	/* Load configuration */
	cfg := config.DefaultConfig()

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = *configPathLong
	}
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}

	if cfgPath != "" {
		var err error
		cfg, err = config.LoadConfig(cfgPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v, using defaults\n", err)
			cfg = config.DefaultConfig()
			config.LoadFromEnv(cfg)
		}
	} else {
		config.LoadFromEnv(cfg)
	}

	/* Initialize logging */
	metrics.InitLogging(cfg.Logging.Level, cfg.Logging.Format)

	/* Connect to database */
	database, err := db.NewDBWithRetry(cfg.Database.DSN(), db.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, 5, 2*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Connection string: host=%s port=%d user=%s dbname=%s\n",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Database)
		os.Exit(1)
	}
	defer database.Close()

	/* Run migrations */
	migrationRunner, err := db.NewMigrationRunner(database.DB, "./migrations")
	if err == nil {
		if err := migrationRunner.Run(context.Background()); err != nil {
			fmt.Printf("Warning: Migration failed: %v\n", err)
		}
	}

	/* Initialize components */
	queries := db.NewQueries(database)

	tokenManager, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v (set JWT_SECRET or auth.jwt_secret)\n", err)
		os.Exit(1)
	}
	keyManager := auth.NewAPIKeyManager(queries)
	rateLimiter := auth.NewRateLimiter()

	/* Notification delivery */
	broker := notifications.NewBroker()
	emailService := notifications.NewEmailService(
		cfg.Notifications.SMTP.Host, cfg.Notifications.SMTP.Port,
		cfg.Notifications.SMTP.Username, cfg.Notifications.SMTP.Password,
		cfg.Notifications.SMTP.From)
	webhookService := notifications.NewWebhookService(cfg.Notifications.WebhookTimeout)
	dispatcher := notifications.NewDispatcher(queries, broker, emailService, webhookService,
		cfg.Notifications.WebhookURL, cfg.Server.BaseURL)

	/* Approval engine and workflow store */
	engine := approval.NewEngine(approval.NewStore(queries), dispatcher)
	workflowStore := workflow.NewStore(queries)

	/* Initialize API */
	handlers := api.NewHandlers(queries, workflowStore, engine, tokenManager, broker)

	/* Setup router */
	router := mux.NewRouter()
	router.Use(api.RequestIDMiddleware)
	router.Use(api.SecurityHeadersMiddleware)
	router.Use(api.CORSMiddleware)
	router.Use(api.LoggingMiddleware)

	/* WebSocket authenticates itself (browsers cannot set headers here) */
	router.HandleFunc("/api/v1/ws", api.HandleNotificationStream(broker, tokenManager)).Methods("GET")

	/* Login issues the tokens the rest of the API requires */
	router.HandleFunc("/api/v1/login", handlers.Login).Methods("POST")

	/* API routes */
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(api.AuthMiddleware(keyManager, tokenManager, rateLimiter))
	apiRouter.HandleFunc("/documents", handlers.CreateDocument).Methods("POST")
	apiRouter.HandleFunc("/documents", handlers.ListDocuments).Methods("GET")
	apiRouter.HandleFunc("/documents/{id}", handlers.GetDocument).Methods("GET")
	apiRouter.HandleFunc("/documents/{id}", handlers.DeleteDocument).Methods("DELETE")
	apiRouter.HandleFunc("/documents/{id}/approvals", handlers.ListDocumentApprovalInstances).Methods("GET")
	apiRouter.HandleFunc("/workflows", handlers.CreateWorkflow).Methods("POST")
	apiRouter.HandleFunc("/workflows", handlers.ListWorkflows).Methods("GET")
	apiRouter.HandleFunc("/workflows/{id}", handlers.GetWorkflow).Methods("GET")
	apiRouter.HandleFunc("/workflows/{id}", handlers.UpdateWorkflow).Methods("PUT")
	apiRouter.HandleFunc("/workflows/{id}", handlers.DeleteWorkflow).Methods("DELETE")
	apiRouter.HandleFunc("/workflows/{id}/toggle", handlers.ToggleWorkflow).Methods("PUT")
	apiRouter.HandleFunc("/approvals", handlers.StartApproval).Methods("POST")
	apiRouter.HandleFunc("/approvals/pending", handlers.ListPendingApprovals).Methods("GET")
	apiRouter.HandleFunc("/approvals/instances/{id}", handlers.GetApprovalInstance).Methods("GET")
	apiRouter.HandleFunc("/approvals/{id}/approve", handlers.ApproveStep).Methods("POST")
	apiRouter.HandleFunc("/approvals/{id}/reject", handlers.RejectStep).Methods("POST")
	apiRouter.HandleFunc("/approvals/{id}/claim", handlers.ClaimStep).Methods("POST")
	apiRouter.HandleFunc("/notifications", handlers.ListNotifications).Methods("GET")
	apiRouter.HandleFunc("/notifications/read-all", handlers.MarkAllNotificationsRead).Methods("PUT")
	apiRouter.HandleFunc("/notifications/{id}/read", handlers.MarkNotificationRead).Methods("PUT")
	apiRouter.HandleFunc("/system/metrics", handlers.GetSystemMetrics).Methods("GET")

	/* Health check */
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		open, idle, inUse := database.GetPoolStats()
		metrics.RecordDBPoolStats(cfg.Database.Database, open, idle, inUse)
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	/* Metrics endpoint (no auth required) */
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	/* Start deadline sweeper */
	var sweeper *jobs.Sweeper
	if cfg.Sweeper.Enabled {
		sweeper = jobs.NewSweeper(queries, engine, cfg.Sweeper.Interval)
		sweeper.Start(context.Background())
		defer sweeper.Stop()
	}

	/* Start server */
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	/* Graceful shutdown */
	go func() {
		fmt.Printf("Server starting on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "FATAL: Server failed to start on %s: %v\n", addr, err)
			os.Exit(1)
		}
	}()

	/* Wait for interrupt signal */
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		fmt.Printf("Server forced to shutdown: %v\n", err)
	}

	fmt.Println("Server exited")
}
