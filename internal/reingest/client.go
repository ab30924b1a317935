// Package reingest sends records evicted from an oversized response back to
// their delivery stream, retrying the rejected subset until it is accepted
// or the attempt budget runs out.
package reingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gyaneshwarpardhi/logbridge/internal/metrics"
	"github.com/gyaneshwarpardhi/logbridge/internal/record"
)

// ItemResult is the sink's verdict for one submitted record.
// An empty ErrorCode means the record was accepted.
type ItemResult struct {
	ErrorCode    string
	ErrorMessage string
}

// Accepted reports whether the sink took the record.
func (r ItemResult) Accepted() bool { return r.ErrorCode == "" }

// Sink accepts batches of raw records for a stream. Results correspond
// positionally to records. A non-nil error means the whole call failed.
type Sink interface {
	PutRecordBatch(ctx context.Context, stream string, records [][]byte) ([]ItemResult, error)
}

// Options tunes a Client. Zero values pick the defaults.
type Options struct {
	MaxAttempts int
	// BackoffBase is the delay after the first failed attempt; it doubles on
	// every further failure up to BackoffMax. Zero disables the delay.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Logger      *slog.Logger
}

// DefaultMaxAttempts bounds the retry loop when Options leaves it unset.
const DefaultMaxAttempts = 20

// Client re-ingests evicted records. It knows nothing about record IDs or
// transformed payloads; the records are reprocessed from scratch later.
type Client struct {
	sink Sink
	opts Options
}

// Result describes a successful re-ingestion.
type Result struct {
	Attempts int
	Records  int
}

// NewClient wraps sink. The sink handle is reused across attempts.
func NewClient(sink Sink, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffMax < opts.BackoffBase {
		opts.BackoffMax = opts.BackoffBase
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{sink: sink, opts: opts}
}

// Put delivers every candidate to dest. On each failed attempt only the
// rejected records are resubmitted, in their original order.
func (c *Client) Put(ctx context.Context, dest Destination, candidates []record.ReingestCandidate) (Result, error) {
	working := make([][]byte, len(candidates))
	for i, cand := range candidates {
		working[i] = cand.Data
	}
	if len(working) == 0 {
		return Result{}, nil
	}

	for attempt := 0; ; attempt++ {
		failed, signal := c.attempt(ctx, dest, working)
		if len(failed) == 0 {
			metrics.ReingestAttempts.WithLabelValues("accepted").Inc()
			return Result{Attempts: attempt + 1, Records: len(candidates)}, nil
		}

		if attempt+1 >= c.opts.MaxAttempts {
			metrics.ReingestAttempts.WithLabelValues("exhausted").Inc()
			return Result{Attempts: attempt + 1}, &ExhaustedError{Attempts: c.opts.MaxAttempts, Err: signal}
		}
		metrics.ReingestAttempts.WithLabelValues("retried").Inc()
		c.opts.Logger.Warn("some records failed while calling PutRecordBatch, retrying",
			"stream", dest.String(),
			"attempt", attempt+1,
			"failed", len(failed),
			"err", signal,
		)

		if err := c.wait(ctx, attempt); err != nil {
			return Result{Attempts: attempt + 1}, fmt.Errorf("re-ingestion interrupted after %d attempts: %w", attempt+1, err)
		}
		working = failed
	}
}

// attempt submits working once and returns the records to retry together
// with the reason they failed.
func (c *Client) attempt(ctx context.Context, dest Destination, working [][]byte) ([][]byte, error) {
	results, err := c.sink.PutRecordBatch(ctx, dest.Name, working)
	if err != nil {
		return working, err
	}
	if len(results) != len(working) {
		return working, fmt.Errorf("sink returned %d results for %d records", len(results), len(working))
	}

	var failed [][]byte
	var codes []string
	for i, res := range results {
		if res.Accepted() {
			continue
		}
		failed = append(failed, working[i])
		codes = append(codes, res.ErrorCode)
	}
	if len(failed) == 0 {
		return nil, nil
	}
	return failed, &PartialFailureError{Failed: len(failed), Codes: codes}
}

// backoff returns the delay after the given zero-based failed attempt.
func (c *Client) backoff(attempt int) time.Duration {
	if c.opts.BackoffBase <= 0 {
		return 0
	}
	d := c.opts.BackoffBase
	for i := 0; i < attempt && d < c.opts.BackoffMax; i++ {
		d *= 2
	}
	if d > c.opts.BackoffMax {
		d = c.opts.BackoffMax
	}
	return d
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	d := c.backoff(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
