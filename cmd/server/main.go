package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/logbridge/internal/api"
	"github.com/gyaneshwarpardhi/logbridge/internal/config"
	"github.com/gyaneshwarpardhi/logbridge/internal/engine"
	"github.com/gyaneshwarpardhi/logbridge/internal/sink/firehose"
	"github.com/gyaneshwarpardhi/logbridge/internal/telemetry"
	"github.com/gyaneshwarpardhi/logbridge/internal/transform"
)

var version = "dev"

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "", "Path to bridge YAML config (environment only when empty)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Tracing ──────────────────────────────────────────────────────────────
	otelCfg, err := telemetry.ParseConfig()
	if err != nil {
		slog.Error("failed to read tracing config", "err", err)
		os.Exit(1)
	}
	shutdownTracing, err := telemetry.Setup(ctx, otelCfg, version)
	if err != nil {
		slog.Error("failed to set up tracing", "err", err)
		os.Exit(1)
	}

	// ── Pipeline ─────────────────────────────────────────────────────────────
	reg := transform.NewDefaultRegistry()
	p, err := engine.NewPipeline(cfg, reg)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}
	slog.Info("pipeline built", "pipeline", p.String())

	// ── Engine ────────────────────────────────────────────────────────────────
	// Sink settings are fixed at startup; reloads only swap the pipeline.
	sinks := firehose.NewProvider(cfg.Sink.Endpoint, cfg.Sink.MaxBatchRecords, cfg.Sink.MaxBatchBytes)
	eng := engine.New(ctx, p, sinks, cfg.Engine)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.BridgeConfig) {
		if err := config.Validate(newCfg); err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		newPipeline, err := engine.NewPipeline(newCfg, reg)
		if err != nil {
			slog.Warn("hot-reload skipped: pipeline build failed", "err", err)
			return
		}
		eng.SwapPipeline(newPipeline)
		slog.Info("pipeline hot-reloaded", "pipeline", newPipeline.String())
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(eng, loader, reg)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown() // queued invocations run to completion
	cancel()
	if err := shutdownTracing(shutCtx); err != nil {
		slog.Warn("tracing shutdown", "err", err)
	}
	slog.Info("goodbye")
}
