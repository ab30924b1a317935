package config

import "time"

// BridgeConfig is the top-level YAML structure.
type BridgeConfig struct {
	Version   string        `yaml:"version" json:"version"`
	Engine    EngineConf    `yaml:"engine" json:"engine" envPrefix:"BRIDGE_"`
	Reconcile ReconcileConf `yaml:"reconcile" json:"reconcile" envPrefix:"BRIDGE_"`
	Reingest  ReingestConf  `yaml:"reingest" json:"reingest" envPrefix:"BRIDGE_REINGEST_"`
	Transform TransformConf `yaml:"transform" json:"transform" envPrefix:"BRIDGE_TRANSFORM_"`
	Sink      SinkConf      `yaml:"sink" json:"sink" envPrefix:"BRIDGE_SINK_"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	InvocationWorkers int `yaml:"invocation_workers" json:"invocation_workers" env:"INVOCATION_WORKERS"`
	QueueDepth        int `yaml:"queue_depth" json:"queue_depth" env:"QUEUE_DEPTH"`
	TransformWorkers  int `yaml:"transform_workers" json:"transform_workers" env:"TRANSFORM_WORKERS"`
}

// ReconcileConf bounds the size of the returned batch.
type ReconcileConf struct {
	// CeilingBytes sits well below the 6 MiB transport limit to leave room
	// for framing the projection does not count.
	CeilingBytes int `yaml:"ceiling_bytes" json:"ceiling_bytes" env:"CEILING_BYTES"`
}

// ReingestConf controls the retry loop for evicted records.
type ReingestConf struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts" env:"MAX_ATTEMPTS"`
	BackoffBase time.Duration `yaml:"backoff_base" json:"backoff_base" env:"BACKOFF_BASE"`
	BackoffMax  time.Duration `yaml:"backoff_max" json:"backoff_max" env:"BACKOFF_MAX"`
}

// TransformConf selects the per-event transform.
type TransformConf struct {
	Name       string `yaml:"name" json:"name" env:"NAME"`
	Expression string `yaml:"expression" json:"expression" env:"EXPRESSION"`
	// NonDataResult is the status given to records that are not DATA_MESSAGE:
	// ProcessingFailed (default) or Dropped.
	NonDataResult string `yaml:"non_data_result" json:"non_data_result" env:"NON_DATA_RESULT"`
}

// SinkConf configures the re-ingestion target.
type SinkConf struct {
	Region          string `yaml:"region" json:"region" env:"REGION"`
	Endpoint        string `yaml:"endpoint" json:"endpoint" env:"ENDPOINT"`
	MaxBatchRecords int    `yaml:"max_batch_records" json:"max_batch_records" env:"MAX_BATCH_RECORDS"`
	MaxBatchBytes   int    `yaml:"max_batch_bytes" json:"max_batch_bytes" env:"MAX_BATCH_BYTES"`
}
