package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/logbridge/internal/config"
	"github.com/gyaneshwarpardhi/logbridge/internal/event"
	"github.com/gyaneshwarpardhi/logbridge/internal/metrics"
	"github.com/gyaneshwarpardhi/logbridge/internal/reconcile"
	"github.com/gyaneshwarpardhi/logbridge/internal/record"
	"github.com/gyaneshwarpardhi/logbridge/internal/reingest"
)

const tracerName = "github.com/gyaneshwarpardhi/logbridge/internal/engine"

// SinkProvider hands out a re-ingestion sink for a region.
type SinkProvider interface {
	ForRegion(ctx context.Context, region string) (reingest.Sink, error)
}

// Engine runs invocations: transform every record, reconcile the batch
// against the size ceiling and re-ingest whatever had to be evicted.
type Engine struct {
	pipeline atomic.Pointer[Pipeline]
	sinks    SinkProvider
	pool     *workerPool[*invocationWork]
	conf     config.EngineConf
	tracer   trace.Tracer
}

type invocationWork struct {
	ctx     context.Context
	batch   *record.Batch
	resultC chan invocationOutcome
}

type invocationOutcome struct {
	resp *record.Response
	err  error
}

// New creates an Engine using conf and starts the invocation pool.
func New(ctx context.Context, p *Pipeline, sinks SinkProvider, conf config.EngineConf) *Engine {
	e := &Engine{
		sinks:  sinks,
		conf:   conf,
		tracer: otel.Tracer(tracerName),
	}
	e.pipeline.Store(p)

	e.pool = newWorkerPool(ctx, conf.InvocationWorkers, conf.QueueDepth,
		func(_ context.Context, w *invocationWork) {
			resp, err := e.Invoke(w.ctx, w.batch)
			w.resultC <- invocationOutcome{resp: resp, err: err}
		},
	)
	return e
}

// SwapPipeline atomically replaces the pipeline (used on hot-reload).
// Invocations already running keep the pipeline they started with.
func (e *Engine) SwapPipeline(p *Pipeline) {
	e.pipeline.Store(p)
}

// Pipeline returns the pipeline new invocations will use.
func (e *Engine) Pipeline() *Pipeline {
	return e.pipeline.Load()
}

// ProcessSync queues batch and waits for its response. It returns
// ErrQueueFull when the queue has no room. If ctx ends first the caller gets
// ctx.Err() while the invocation still runs to completion.
func (e *Engine) ProcessSync(ctx context.Context, batch *record.Batch) (*record.Response, error) {
	w := &invocationWork{
		ctx:     context.WithoutCancel(ctx),
		batch:   batch,
		resultC: make(chan invocationOutcome, 1),
	}
	if !e.pool.Submit(w) {
		metrics.InvocationsRejected.Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.pool.QueueCap())
	}
	metrics.InvocationsEnqueued.Inc()
	metrics.QueueUtilization.Set(e.QueueUtilization())

	select {
	case out := <-w.resultC:
		return out.resp, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Invoke processes one batch on the calling goroutine. Either every record
// gets a status, or the invocation fails as a whole and the error says why.
func (e *Engine) Invoke(ctx context.Context, batch *record.Batch) (*record.Response, error) {
	start := time.Now()
	p := e.pipeline.Load()

	id := batch.InvocationID
	if id == "" {
		id = uuid.NewString()
	}
	log := slog.With("invocation_id", id)

	ctx, span := e.tracer.Start(ctx, "Invoke", trace.WithAttributes(
		attribute.String("logbridge.invocation_id", id),
		attribute.String("logbridge.delivery_stream_arn", batch.DeliveryStreamARN),
		attribute.Int("logbridge.records", len(batch.Records)),
	))
	defer span.End()

	resp, reingested, err := e.invoke(ctx, p, batch, log)
	metrics.InvocationDuration.Observe(float64(time.Since(start).Milliseconds()))
	metrics.Invocations.WithLabelValues(outcomeOf(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("invocation failed", "records", len(batch.Records), "err", err)
		return nil, err
	}

	counts := resp.Counts()
	for status, n := range counts {
		metrics.Records.WithLabelValues(string(status)).Add(float64(n))
	}
	span.SetAttributes(
		attribute.Int("logbridge.records.ok", counts[record.StatusOk]),
		attribute.Int("logbridge.records.reingested", reingested),
	)
	return resp, nil
}

func (e *Engine) invoke(ctx context.Context, p *Pipeline, batch *record.Batch, log *slog.Logger) (*record.Response, int, error) {
	outputs, err := e.transformAll(ctx, p, batch.Records)
	if err != nil {
		return nil, 0, err
	}

	plan := reconcile.Reconcile(batch.Records, outputs, p.CeilingBytes)
	metrics.ProjectedBatchBytes.Observe(float64(plan.InitialSize))
	resp := &record.Response{Records: plan.Records}

	if len(plan.Candidates) == 0 {
		log.Info("no records needed to be reingested", "records", len(batch.Records), "projected_size", plan.InitialSize)
		return resp, 0, nil
	}

	res, err := e.reingest(ctx, p, batch, plan.Candidates, log)
	if err != nil {
		return nil, 0, err
	}
	metrics.RecordsReingested.Add(float64(res.Records))
	log.Info(fmt.Sprintf("reingested %d records out of %d", res.Records, len(batch.Records)),
		"attempts", res.Attempts,
		"projected_size", plan.InitialSize,
		"final_size", plan.ProjectedSize,
	)
	return resp, res.Records, nil
}

// transformAll runs the per-record transform with bounded parallelism.
// Outputs keep input order. The first failure cancels the rest.
func (e *Engine) transformAll(ctx context.Context, p *Pipeline, records []record.InputRecord) ([]record.OutputRecord, error) {
	ctx, span := e.tracer.Start(ctx, "Transform")
	defer span.End()

	out := make([]record.OutputRecord, len(records))
	g, gctx := errgroup.WithContext(ctx)
	if p.TransformWorkers > 0 {
		g.SetLimit(p.TransformWorkers)
	}
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := p.transformRecord(gctx, records[i])
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return out, nil
}

func (e *Engine) reingest(ctx context.Context, p *Pipeline, batch *record.Batch, cands []record.ReingestCandidate, log *slog.Logger) (reingest.Result, error) {
	ctx, span := e.tracer.Start(ctx, "Reingest", trace.WithAttributes(
		attribute.Int("logbridge.candidates", len(cands)),
	))
	defer span.End()

	fallback := batch.Region
	if fallback == "" {
		fallback = p.FallbackRegion
	}
	dest, err := reingest.ParseDestination(batch.DeliveryStreamARN, fallback)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return reingest.Result{}, err
	}
	span.SetAttributes(attribute.String("logbridge.destination", dest.String()))

	sink, err := e.sinks.ForRegion(ctx, dest.Region)
	if err != nil {
		err = fmt.Errorf("sink for region %s: %w", dest.Region, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return reingest.Result{}, err
	}

	opts := p.Reingest
	opts.Logger = log
	res, err := reingest.NewClient(sink, opts).Put(ctx, dest, cands)
	span.SetAttributes(attribute.Int("logbridge.attempts", res.Attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	return res, nil
}

func outcomeOf(err error) string {
	var (
		decodeErr    *FatalDecodeError
		transformErr *TransformError
		exhausted    *reingest.ExhaustedError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &decodeErr):
		if errors.Is(err, event.ErrDecompress) {
			return "decompress_error"
		}
		return "decode_error"
	case errors.As(err, &transformErr):
		return "transform_error"
	case errors.As(err, &exhausted):
		return "reingest_exhausted"
	default:
		return "reingest_error"
	}
}

// Shutdown stops accepting work and waits for queued invocations.
func (e *Engine) Shutdown() {
	e.pool.Drain()
	metrics.QueueUtilization.Set(0)
}
