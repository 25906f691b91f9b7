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

	"github.com/sinhong2011/minikyu/app/accounts"
	"github.com/sinhong2011/minikyu/app/api"
	"github.com/sinhong2011/minikyu/app/cfg"
	"github.com/sinhong2011/minikyu/app/content"
	"github.com/sinhong2011/minikyu/app/database"
	"github.com/sinhong2011/minikyu/app/events"
	"github.com/sinhong2011/minikyu/app/miniflux"
	"github.com/sinhong2011/minikyu/app/sync"
	"github.com/sinhong2011/minikyu/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Minikyu", "version", appCfg.Version)

	serverURL, token, username, password, err := resolveAccount(appCfg)
	if err != nil {
		log.Fatalf("Failed to resolve account: %v", err)
	}
	if serverURL == "" {
		log.Fatal("No server URL configured (set MINIFLUX_SERVER_URL or use --account)")
	}

	client := miniflux.NewClient(serverURL).WithUserAgent(appCfg.UserAgent)
	switch {
	case token != "":
		client = client.WithToken(token)
	case username != "":
		client = client.WithCredentials(username, password)
	default:
		log.Fatal("No credentials configured (set MINIFLUX_API_TOKEN or MINIFLUX_USERNAME/MINIFLUX_PASSWORD)")
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	ok, err := client.Authenticate(startupCtx)
	if err != nil {
		log.Fatalf("Failed to reach server %s: %v", serverURL, err)
	}
	if !ok {
		log.Fatalf("Authentication rejected by %s", serverURL)
	}

	user, err := client.GetCurrentUser(startupCtx)
	if err != nil {
		log.Fatalf("Failed to fetch current user: %v", err)
	}
	slog.Info("Authenticated", "server", serverURL, "user", user.Username)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	categoryRepo := database.NewCategoryRepository(db)
	feedRepo := database.NewFeedRepository(db)
	entryRepo := database.NewEntryRepository(db)
	stateRepo := database.NewSyncStateRepository(db)
	queueRepo := database.NewQueueRepository(db)

	hub := events.NewHub()
	engine := sync.NewEngine(client, categoryRepo, feedRepo, entryRepo, stateRepo, hub)
	extractor := content.NewExtractor(appCfg.UserAgent)

	scheduler := tasks.NewScheduler(engine)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(user.ID, categoryRepo, feedRepo, entryRepo,
		stateRepo, queueRepo, engine, client, extractor, hub)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:        ":" + appCfg.Port,
		Handler:     server,
		ReadTimeout: 30 * time.Second,
		// No write timeout: the event stream stays open indefinitely
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// resolveAccount picks the server and credentials either from a named entry in
// the accounts registry or from the direct configuration values.
func resolveAccount(appCfg *cfg.Cfg) (serverURL, token, username, password string, err error) {
	if appCfg.Account == "" {
		return appCfg.ServerURL, appCfg.APIToken, appCfg.Username, appCfg.Password, nil
	}

	registry := accounts.NewRegistry()
	if err := registry.Load(appCfg.AccountsFile); err != nil {
		return "", "", "", "", fmt.Errorf("failed to load accounts file %s: %w", appCfg.AccountsFile, err)
	}

	account, err := registry.Get(appCfg.Account)
	if err != nil {
		return "", "", "", "", err
	}

	token, username, password, err = account.Credentials()
	if err != nil {
		return "", "", "", "", err
	}

	return account.ServerURL, token, username, password, nil
}
