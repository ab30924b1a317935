package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Defaults. The ceiling and attempt count mirror the limits the bridge was
// originally tuned for: 4,000,000 bytes out of a 6 MiB response and 20 tries.
const (
	DefaultInvocationWorkers = 4
	DefaultQueueDepth        = 64
	DefaultTransformWorkers  = 32
	DefaultCeilingBytes      = 4000000
	DefaultMaxAttempts       = 20
	DefaultBackoffBase       = 100 * time.Millisecond
	DefaultBackoffMax        = 5 * time.Second
	DefaultTransform         = "newline"
	DefaultNonDataResult     = "ProcessingFailed"
	DefaultMaxBatchRecords   = 500
	DefaultMaxBatchBytes     = 4 * 1024 * 1024
)

// Loader reads a YAML config file and watches it for changes.
// An empty path yields a config built from the environment and defaults only.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *BridgeConfig
	onChange []func(*BridgeConfig)
	watcher  *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Load is a one-shot read for callers that never hot-reload.
func Load(path string) (*BridgeConfig, error) {
	l := &Loader{path: path}
	return l.load()
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *BridgeConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*BridgeConfig)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	if l.path == "" {
		return nil, fmt.Errorf("config watcher: no config file")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					cfg, err := l.load()
					if err != nil {
						slog.Warn("config reload failed, keeping previous", "path", l.path, "err", err)
						continue
					}
					l.publish(cfg)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the config file.
func (l *Loader) Reload() (*BridgeConfig, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.publish(cfg)
	return cfg, nil
}

func (l *Loader) publish(cfg *BridgeConfig) {
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*BridgeConfig), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
}

func (l *Loader) load() (*BridgeConfig, error) {
	var cfg BridgeConfig
	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", l.path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", l.path, err)
		}
	}
	// Environment wins over the file.
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config environment: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *BridgeConfig) {
	if cfg.Version == "" {
		cfg.Version = "v1"
	}
	if cfg.Engine.InvocationWorkers == 0 {
		cfg.Engine.InvocationWorkers = DefaultInvocationWorkers
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = DefaultQueueDepth
	}
	if cfg.Engine.TransformWorkers == 0 {
		cfg.Engine.TransformWorkers = DefaultTransformWorkers
	}
	if cfg.Reconcile.CeilingBytes == 0 {
		cfg.Reconcile.CeilingBytes = DefaultCeilingBytes
	}
	if cfg.Reingest.MaxAttempts == 0 {
		cfg.Reingest.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Reingest.BackoffBase == 0 {
		cfg.Reingest.BackoffBase = DefaultBackoffBase
	}
	if cfg.Reingest.BackoffMax == 0 {
		cfg.Reingest.BackoffMax = DefaultBackoffMax
	}
	if cfg.Transform.Name == "" {
		cfg.Transform.Name = DefaultTransform
		if cfg.Transform.Expression != "" {
			cfg.Transform.Name = "expression"
		}
	}
	if cfg.Transform.NonDataResult == "" {
		cfg.Transform.NonDataResult = DefaultNonDataResult
	}
	if cfg.Sink.MaxBatchRecords == 0 {
		cfg.Sink.MaxBatchRecords = DefaultMaxBatchRecords
	}
	if cfg.Sink.MaxBatchBytes == 0 {
		cfg.Sink.MaxBatchBytes = DefaultMaxBatchBytes
	}
}
