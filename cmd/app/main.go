// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jpk2json-service/internal/config"
	"jpk2json-service/internal/domain/ports/adapter"
	"jpk2json-service/internal/domain/ports/repository"
	"jpk2json-service/internal/infra/audit"
	"jpk2json-service/internal/infra/auth"
	"jpk2json-service/internal/infra/blacklist"
	pg "jpk2json-service/internal/infra/db/postgres"
	"jpk2json-service/internal/infra/engine"
	httpapi "jpk2json-service/internal/infra/http"
	"jpk2json-service/internal/infra/logging"
	"jpk2json-service/internal/infra/metrics"
	red "jpk2json-service/internal/infra/redis"
	"jpk2json-service/internal/infra/storage"
	"jpk2json-service/internal/infra/worker"
	"jpk2json-service/internal/ratelimit"
	"jpk2json-service/internal/registry"
	"jpk2json-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres (optional) ----
	// Without a database the audit trail is discarded and approval falls
	// back to the static list from config.
	var auditSink repository.AuditSink = audit.NewNopSink()
	var approver adapter.Approver = auth.NewStaticApprover(cfg.Auth.Approved)
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		auditSink = pg.NewAuditRepo(pool)
		approver = pg.NewApprovedRepo(pool)
		logger.Info().Msg("postgres audit sink and approver enabled")
	}

	// ---- Rate limiter ----
	// Redis gives a shared window across replicas; the in-memory limiter
	// covers single-instance deployments.
	var limiter adapter.RateLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger)
		logger.Info().Msg("redis rate limiter enabled")
	}

	// ---- Access gate ----
	gate := blacklist.New(cfg.Blacklist.File, logger)
	if cfg.Blacklist.File != "" {
		if err := gate.Reload(ctx); err != nil {
			logger.Warn().Err(err).Str("file", cfg.Blacklist.File).Msg("blacklist load failed, starting empty")
		}
	}

	// ---- Storage and registry ----
	store, err := storage.NewLocalStore(cfg.Converter.UploadDir, cfg.Converter.OutputDir)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	reg := registry.New()

	// ---- Conversion engine ----
	var eng adapter.ConversionEngine
	if cfg.Converter.Bin != "" {
		eng, err = engine.NewExecEngine(cfg.Converter.Bin, logger)
		if err != nil {
			log.Fatalf("converter binary: %v", err)
		}
		logger.Info().Str("bin", cfg.Converter.Bin).Msg("exec conversion engine")
	} else {
		eng = engine.NewHTTPEngine(cfg.Converter.URL)
		logger.Info().Str("url", cfg.Converter.URL).Msg("http conversion engine")
	}

	// ---- Worker pool ----
	runner := worker.NewRunner(reg, store, eng, auditSink, logger)
	pool := worker.NewPool(cfg.Converter.Workers, cfg.Converter.QueueSize, runner, logger)
	pool.Start(ctx)
	defer pool.Stop()

	// ---- Use cases ----
	convertUC := usecase.NewConversionUseCase(
		gate, approver, limiter, reg, store, pool, auditSink,
		cfg.Converter.AllowedExt, cfg.Converter.MaxUploadBytes, logger,
	)
	blockUC := usecase.NewBlacklistUseCase(gate)

	// ---- HTTP server ----
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	srv := httpapi.NewServer(cfg, convertUC, blockUC, verifier, gate, auditSink, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
