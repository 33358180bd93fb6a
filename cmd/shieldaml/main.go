// ShieldAML - Deterministic AML risk scoring and case management.
// Copyright (c) 2026 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opensource-finance/shieldaml/internal/api"
	"github.com/opensource-finance/shieldaml/internal/bus"
	"github.com/opensource-finance/shieldaml/internal/cache"
	"github.com/opensource-finance/shieldaml/internal/domain"
	"github.com/opensource-finance/shieldaml/internal/engine"
	"github.com/opensource-finance/shieldaml/internal/repository"
	"github.com/opensource-finance/shieldaml/internal/rules"
	"github.com/opensource-finance/shieldaml/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("SHIELDAML_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting shieldaml",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("SHIELDAML_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Reference data drives every scoring decision; refuse to start on
	// an inconsistent catalog.
	ref := domain.DefaultRefData()
	if err := ref.Validate(); err != nil {
		slog.Error("invalid reference data", "error", err)
		os.Exit(1)
	}

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize custom screening rule engine
	ruleEngine, err := rules.NewEngine(logger)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	if err := loadRulesFromDatabase(ctx, repo, ruleEngine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", ruleEngine.RulesCount())

	// Initialize scoring engine
	eng, err := engine.NewEngine(ref, engine.WithCustomFlags(ruleEngine))
	if err != nil {
		slog.Error("failed to initialize scoring engine", "error", err)
		os.Exit(1)
	}
	slog.Info("scoring engine initialized", "model_version", engine.ModelVersion)

	// Seed demo data on first start (Community tier default)
	if cfg.SeedDemoData {
		if err := repository.Seed(ctx, repo, eng, logger); err != nil {
			slog.Error("failed to seed demo data", "error", err)
		}
	}

	// Initialize alert/STR case worker
	caseWorker := worker.NewWorker(busImpl, repo, logger)
	if err := caseWorker.Start(); err != nil {
		slog.Error("failed to start case worker", "error", err)
		os.Exit(1)
	}
	slog.Info("case worker started")

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, eng, ruleEngine, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("shieldaml is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop case worker first so in-flight events drain
	caseWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("shieldaml shutdown complete")
}

// applyEnvOverrides applies SHIELDAML_* environment overrides on top of
// the tier defaults.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("SHIELDAML_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SHIELDAML_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SHIELDAML_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("SHIELDAML_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("SHIELDAML_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("SHIELDAML_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("SHIELDAML_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("SHIELDAML_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("SHIELDAML_SEED_DEMO"); v != "" {
		cfg.SeedDemoData = v == "true"
	}
}

// loadRulesFromDatabase loads custom screening rules from the store.
// All rules are configured via POST /api/rules - no hardcoded defaults.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, ruleEngine *rules.Engine) error {
	dbRules, err := repo.ListCustomRules(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return ruleEngine.LoadRules(dbRules)
	}

	slog.Info("no rules in database - configure via POST /api/rules")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              🛡  SHIELDAML                 ║")
	fmt.Println("  ║    AML Risk Scoring & Case Management     ║")
	fmt.Println("  ║     Every transaction, accounted for.     ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST  /api/transactions/analyze  - Score a transaction")
	fmt.Println("    GET   /api/transactions          - List analyzed transactions")
	fmt.Println("    GET   /api/transactions/{id}     - Get transaction by ID")
	fmt.Println("    POST  /api/kyc/check             - Screen a customer")
	fmt.Println("    GET   /api/kyc                   - List KYC results")
	fmt.Println("    GET   /api/alerts                - List alerts")
	fmt.Println("    PATCH /api/alerts/{id}/resolve   - Resolve an alert")
	fmt.Println("    GET   /api/str                   - List STR reports")
	fmt.Println("    POST  /api/str/generate          - Draft an STR")
	fmt.Println("    PATCH /api/str/{id}/submit       - Submit an STR")
	fmt.Println("    GET   /api/rules                 - List screening rules")
	fmt.Println("    POST  /api/rules                 - Create a screening rule")
	fmt.Println("    POST  /api/rules/reload          - Hot-reload rules")
	fmt.Println("    GET   /api/dashboard             - Compliance dashboard")
	fmt.Println("    GET   /health                    - Health check")
	fmt.Println()
}
