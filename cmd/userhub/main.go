// Package main provides the main entry point for userhub, a user
// management service with bearer-token authentication.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/identkit/userhub/api"
	"github.com/identkit/userhub/pkg/config"
	"github.com/identkit/userhub/pkg/logger"
	"github.com/identkit/userhub/pkg/users"
)

// Version information (set by build process)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Command line flags
var (
	configFile  = flag.String("config", "", "Path to configuration file")
	logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error); overrides config")
	showVersion = flag.Bool("version", false, "Show version information")
	writeConfig = flag.String("write-config", "", "Write a default configuration file to the given path and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("userhub %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	if *writeConfig != "" {
		if err := config.WriteDefault(*writeConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Wrote default configuration to %s\n", *writeConfig)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	appLogger := logger.New(cfg.Log.Level)
	appLogger.Info("Starting userhub", map[string]interface{}{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	})

	store, err := users.NewRepository(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLogger.Error("Failed to close user store", err)
		}
	}()

	hasher := users.NewHasher(cfg.Auth.BcryptCost)
	tokens := users.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	unique := users.NewUniqueValidator(store, appLogger)
	svc := users.NewService(store, hasher, tokens, unique, appLogger)

	// Seed the first user so a fresh deployment can obtain a token. All
	// user routes sit behind the guard, so an empty store would otherwise
	// be unreachable.
	if cfg.Auth.BootstrapEmail != "" {
		if err := svc.Bootstrap(ctx, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapName, cfg.Auth.BootstrapPassword); err != nil {
			return fmt.Errorf("failed to bootstrap initial user: %w", err)
		}
	}

	// Reloads only adjust the log level; server and database settings need
	// a restart.
	cfg.Watch(appLogger, func(updated *config.Config) {
		appLogger.Info("Configuration reloaded", map[string]interface{}{
			"log_level": updated.Log.Level,
		})
	})

	server := api.NewServer(cfg, appLogger, svc, tokens, Version)
	return server.Start(ctx)
}
