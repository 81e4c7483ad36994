package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/metrics"
	"github.com/Layr-Labs/near-signer-go/pkg/server"
	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 15 * time.Second

func runServe(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg := parseServerConfig(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	base, err := buildSigner(ctx, &cfg.Signer, l)
	if err != nil {
		return err
	}
	// fail fast on an unreachable or unusable key
	pk, err := base.GetPublicKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}

	journal, err := buildJournal(&cfg.Persistence, l)
	if err != nil {
		return fmt.Errorf("failed to open signature journal: %w", err)
	}
	defer func() {
		if err := journal.Close(); err != nil {
			l.Sugar().Warnw("Failed to close signature journal", "error", err)
		}
	}()

	verifier, err := buildVerifier(ctx, &cfg.Auth, l)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	deps := &server.Dependencies{
		Signer:   signer.NewRecordingSigner(base, journal, l),
		Journal:  journal,
		Verifier: verifier,
	}
	if cfg.Server.EnableMetrics {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.Metrics = metrics.NewMetrics(registry)
		deps.Gatherer = registry
	}

	srv, err := server.NewServer(&cfg.Server, deps, l)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	l.Sugar().Infow("Starting NEAR signer",
		"public_key", pk.String(),
		"backend", cfg.Signer.Backend,
		"persistence", cfg.Persistence.Type,
		"auth", cfg.Auth.Mode,
		"port", cfg.Server.Port,
		"metrics", cfg.Server.EnableMetrics,
	)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-ctx.Done()
	l.Sugar().Infow("Shutting down NEAR signer")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}
