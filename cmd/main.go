/*
Package main is the entry point for the CesuChat messaging hub.

It loads configuration, initializes the global logging system, connects the
database, wires the hub core (registry, rooms, authorization gate, pipeline,
gateway) to its collaborators, and runs the HTTP server with graceful shutdown
on operating system interrupt signals (SIGINT, SIGTERM).
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cesuchat/internal/app/auth"
	"cesuchat/internal/app/db"
	"cesuchat/internal/app/hub"
	"cesuchat/internal/app/store"
	"cesuchat/internal/configs"
	"cesuchat/internal/handler"
	"cesuchat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("fanout_bridge", cfg.RedisURL != "").
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect database and run migrations
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect database")
	}
	defer pool.Close()

	// Collaborator stores
	users := store.NewUsers(pool)
	groups := store.NewGroups(pool)
	messages := store.NewMessages(pool)

	// Hub core
	rooms := hub.NewRooms()
	registry := hub.NewRegistry(rooms)
	gate := hub.NewGate(groups)
	pipeline := hub.NewPipeline(registry, rooms, gate, messages, groups, users)
	verifier := auth.NewVerifier(cfg.JWTSecret)
	gateway := hub.NewGateway(registry, pipeline, verifier, cfg.TokenVerifyTimeout)

	// Optional cross-instance fanout bridge
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logx.Fatal(err, "Invalid REDIS_URL")
		}

		bridge := hub.NewBridge(redis.NewClient(opts), registry, rooms, uuid.NewString())
		pipeline.SetRelay(bridge)
		go bridge.Run(ctx)
	}

	// Setup HTTP server and routes
	deps := &handler.AppDeps{
		Gateway: gateway,
		Config:  cfg,
		Users:   users,
	}
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("CesuChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
