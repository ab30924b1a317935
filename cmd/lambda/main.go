// Command lambda runs the bridge as a Firehose data-transformation Lambda.
//
// Configuration comes from the environment (BRIDGE_*), optionally layered on
// a YAML file named by BRIDGE_CONFIG.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/gyaneshwarpardhi/logbridge/internal/config"
	"github.com/gyaneshwarpardhi/logbridge/internal/engine"
	"github.com/gyaneshwarpardhi/logbridge/internal/sink/firehose"
	"github.com/gyaneshwarpardhi/logbridge/internal/telemetry"
	"github.com/gyaneshwarpardhi/logbridge/internal/transform"
)

var version = "dev"

func main() {
	// CloudWatch indexes JSON log lines.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load(os.Getenv("BRIDGE_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
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

	p, err := engine.NewPipeline(cfg, transform.NewDefaultRegistry())
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}
	sinks := firehose.NewProvider(cfg.Sink.Endpoint, cfg.Sink.MaxBatchRecords, cfg.Sink.MaxBatchBytes)
	eng := engine.New(ctx, p, sinks, cfg.Engine)

	h := &handler{eng: eng}
	lambda.StartWithOptions(h.Handle, lambda.WithEnableSIGTERM(func() {
		eng.Shutdown()
		_ = shutdownTracing(context.Background())
	}))
}
