package engine

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gyaneshwarpardhi/logbridge/internal/config"
	"github.com/gyaneshwarpardhi/logbridge/internal/event"
	"github.com/gyaneshwarpardhi/logbridge/internal/record"
	"github.com/gyaneshwarpardhi/logbridge/internal/reingest"
	"github.com/gyaneshwarpardhi/logbridge/internal/transform"
)

// Pipeline is the swappable part of the engine: everything that may change
// on config reload.
type Pipeline struct {
	Transformer      transform.Transformer
	NonDataStatus    record.Status
	TransformWorkers int
	CeilingBytes     int
	Reingest         reingest.Options
	FallbackRegion   string
}

// NewPipeline builds a Pipeline from a validated config.
func NewPipeline(cfg *config.BridgeConfig, reg *transform.Registry) (*Pipeline, error) {
	tr, err := reg.Resolve(cfg.Transform)
	if err != nil {
		return nil, fmt.Errorf("resolve transform: %w", err)
	}
	status := record.Status(cfg.Transform.NonDataResult)
	if status != record.StatusProcessingFailed && status != record.StatusDropped {
		return nil, fmt.Errorf("non-data result %q is not ProcessingFailed or Dropped", status)
	}
	return &Pipeline{
		Transformer:      tr,
		NonDataStatus:    status,
		TransformWorkers: cfg.Engine.TransformWorkers,
		CeilingBytes:     cfg.Reconcile.CeilingBytes,
		Reingest: reingest.Options{
			MaxAttempts: cfg.Reingest.MaxAttempts,
			BackoffBase: cfg.Reingest.BackoffBase,
			BackoffMax:  cfg.Reingest.BackoffMax,
		},
		FallbackRegion: cfg.Sink.Region,
	}, nil
}

// DefaultPipeline uses the newline transform and the default limits.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Transformer:      transform.Newline(),
		NonDataStatus:    record.StatusProcessingFailed,
		TransformWorkers: config.DefaultTransformWorkers,
		CeilingBytes:     config.DefaultCeilingBytes,
		Reingest: reingest.Options{
			MaxAttempts: config.DefaultMaxAttempts,
			BackoffBase: config.DefaultBackoffBase,
			BackoffMax:  config.DefaultBackoffMax,
		},
	}
}

// transformRecord turns one input record into its output record.
// Events are rendered in order and concatenated as is.
func (p *Pipeline) transformRecord(ctx context.Context, in record.InputRecord) (record.OutputRecord, error) {
	env, err := event.Decode(in.Data)
	if err != nil {
		return record.OutputRecord{}, &FatalDecodeError{RecordID: in.ID, Err: err}
	}
	if !env.IsData() {
		return record.OutputRecord{ID: in.ID, Status: p.NonDataStatus}, nil
	}

	meta := transform.MetaOf(env)
	var buf bytes.Buffer
	for _, ev := range env.LogEvents {
		frag, err := p.Transformer.Transform(ctx, meta, ev)
		if err != nil {
			return record.OutputRecord{}, &TransformError{RecordID: in.ID, EventID: ev.ID, Err: err}
		}
		buf.Write(frag)
	}

	payload := buf.Bytes()
	if payload == nil {
		payload = []byte{}
	}
	return record.OutputRecord{ID: in.ID, Status: record.StatusOk, Payload: payload}, nil
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("transform=%s ceiling=%d max_attempts=%d backoff=%s..%s",
		p.Transformer.Name(), p.CeilingBytes, p.Reingest.MaxAttempts,
		p.Reingest.BackoffBase.Round(time.Millisecond), p.Reingest.BackoffMax.Round(time.Millisecond))
}
