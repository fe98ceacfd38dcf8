// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremyhahn/go-passkey/internal/config"
	"github.com/jeremyhahn/go-passkey/internal/rest"
	"github.com/jeremyhahn/go-passkey/pkg/challenge"
	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/logging"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/ratelimit"
	"github.com/jeremyhahn/go-passkey/pkg/registration"
	"github.com/jeremyhahn/go-passkey/pkg/storage"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "/etc/passkey/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("go-passkey registration server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	// Check for config file override via environment
	if envConfig := os.Getenv("PASSKEY_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	// A missing config file is not fatal; defaults plus environment
	// overrides carry local development.
	path := *configPath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Warn("Config file not found, using defaults", "path", path)
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("Starting registration server",
		"config", *configPath,
		"version", version,
		"rp_id", cfg.RelyingParty.ID)

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()

	// Relational store for accounts and credentials.
	var users storage.UserStore
	var creds storage.CredentialStore
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			logger.Error("Failed to open database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close database", slog.Any("error", err))
			}
		}()
		users = store
		creds = store
		checker.RegisterCheck("storage", health.PingCheck("storage", store.Ping))
	case "memory":
		users = storage.NewMemoryUserStore()
		creds = storage.NewMemoryCredentialStore()
		checker.RegisterCheck("storage", health.StaticCheck("storage", health.StatusHealthy, "in-memory store"))
	}

	// Challenge cache, degrading to in-process when Redis is unreachable.
	challenges, challengeBackend := challenge.Select(ctx, challenge.RedisConfig{
		Addr:      cfg.Cache.Addr,
		Password:  cfg.Cache.Password,
		DB:        cfg.Cache.DB,
		KeyPrefix: cfg.Cache.KeyPrefix,
		OpTimeout: cfg.Cache.OpTimeout.Std(),
	}, logger)
	metrics.SetChallengeBackend(challengeBackend)

	if redisStore, ok := challenges.(*challenge.RedisStore); ok {
		checker.RegisterCheck("challenge_cache", health.PingCheck("challenge_cache", redisStore.Ping))
	} else {
		checker.RegisterCheck("challenge_cache", health.StaticCheck("challenge_cache",
			health.StatusDegraded, "in-process fallback; challenges do not survive restarts"))
	}

	regConfig := cfg.RelyingParty.ToRegistration()
	regConfig.SetDefaults()

	var tokens registration.TokenGenerator
	if cfg.Token.Enabled {
		generator, err := registration.NewJWTGenerator(&registration.JWTGeneratorConfig{
			Secret:    []byte(cfg.Token.Secret),
			Issuer:    cfg.Token.Issuer,
			Audience:  cfg.Token.Audience,
			ExpiresIn: cfg.Token.TTL.Std(),
		})
		if err != nil {
			logger.Error("Failed to create token generator", slog.Any("error", err))
			os.Exit(1)
		}
		tokens = generator
	}

	orchestrator, err := registration.NewOrchestrator(registration.OrchestratorParams{
		Config:          regConfig,
		UserStore:       users,
		CredentialStore: creds,
		ChallengeStore:  challenges,
		SessionBinder:   registration.NewMemorySessionBinder(regConfig.ChallengeTTL),
		TokenGenerator:  tokens,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("Failed to create orchestrator", slog.Any("error", err))
		os.Exit(1)
	}

	var tlsConfig *tls.Config
	if cfg.Server.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		if err != nil {
			logger.Error("Failed to load TLS certificate", slog.Any("error", err))
			os.Exit(1)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			Enabled:           true,
			RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
			Burst:             cfg.Server.RateLimit.Burst,
		})
		defer limiter.Stop()
	}

	server, err := rest.NewServer(&rest.Config{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		Orchestrator:     orchestrator,
		Logger:           logger,
		Version:          version,
		TLSConfig:        tlsConfig,
		TokenTTL:         cfg.Token.TTL.Std(),
		ChallengeBackend: challengeBackend,
		StorageBackend:   cfg.Storage.Backend,
		HealthChecker:    checker,
		RateLimit:        limiter,
		MetricsEnabled:   cfg.Metrics.Enabled,
		MetricsPath:      cfg.Metrics.Path,
		ReadTimeout:      cfg.Server.ReadTimeout.Std(),
		WriteTimeout:     cfg.Server.WriteTimeout.Std(),
		IdleTimeout:      cfg.Server.IdleTimeout.Std(),
	})
	if err != nil {
		logger.Error("Failed to create server", slog.Any("error", err))
		os.Exit(1)
	}

	collector := metrics.StartResourceCollector(ctx, 15*time.Second)
	defer collector.Stop()

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	logger.Info("Registration server started",
		"addr", server.Addr(),
		"challenge_backend", challengeBackend,
		"storage_backend", cfg.Storage.Backend)

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		logger.Error("Server error", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Error during server shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("Registration server stopped")
}
