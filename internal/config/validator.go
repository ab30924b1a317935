package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for out-of-range values and unknown names.
// All problems are reported together.
func Validate(cfg *BridgeConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if cfg.Engine.InvocationWorkers < 1 {
		errs = append(errs, fmt.Sprintf("engine.invocation_workers must be >= 1, got %d", cfg.Engine.InvocationWorkers))
	}
	if cfg.Engine.QueueDepth < 1 {
		errs = append(errs, fmt.Sprintf("engine.queue_depth must be >= 1, got %d", cfg.Engine.QueueDepth))
	}
	if cfg.Engine.TransformWorkers < 1 {
		errs = append(errs, fmt.Sprintf("engine.transform_workers must be >= 1, got %d", cfg.Engine.TransformWorkers))
	}
	if cfg.Reconcile.CeilingBytes < 1 {
		errs = append(errs, fmt.Sprintf("reconcile.ceiling_bytes must be >= 1, got %d", cfg.Reconcile.CeilingBytes))
	}
	if cfg.Reingest.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("reingest.max_attempts must be >= 1, got %d", cfg.Reingest.MaxAttempts))
	}
	if cfg.Reingest.BackoffBase > 0 && cfg.Reingest.BackoffMax < cfg.Reingest.BackoffBase {
		errs = append(errs, fmt.Sprintf("reingest.backoff_max (%s) must not be below backoff_base (%s)",
			cfg.Reingest.BackoffMax, cfg.Reingest.BackoffBase))
	}

	switch cfg.Transform.Name {
	case "newline", "json":
	case "expression":
		if strings.TrimSpace(cfg.Transform.Expression) == "" {
			errs = append(errs, "transform.expression is required when transform.name is expression")
		}
	default:
		errs = append(errs, fmt.Sprintf("transform.name %q is not one of newline, json, expression", cfg.Transform.Name))
	}
	switch cfg.Transform.NonDataResult {
	case "ProcessingFailed", "Dropped":
	default:
		errs = append(errs, fmt.Sprintf("transform.non_data_result must be ProcessingFailed or Dropped, got %q", cfg.Transform.NonDataResult))
	}

	if cfg.Sink.MaxBatchRecords < 1 || cfg.Sink.MaxBatchRecords > 500 {
		errs = append(errs, fmt.Sprintf("sink.max_batch_records must be within [1, 500], got %d", cfg.Sink.MaxBatchRecords))
	}
	if cfg.Sink.MaxBatchBytes < 1 {
		errs = append(errs, fmt.Sprintf("sink.max_batch_bytes must be >= 1, got %d", cfg.Sink.MaxBatchBytes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
