// Package transform holds the per-event transforms applied to CloudWatch Logs
// events before they are handed back to the delivery stream.
//
// A transform maps exactly one log event to one output fragment. Fragments of
// a record are concatenated without separators, so any delimiter has to be
// emitted by the transform itself.
package transform

import (
	"context"

	"github.com/gyaneshwarpardhi/logbridge/internal/event"
)

// Meta is the envelope context shared by every event of one record.
type Meta struct {
	Owner               string
	LogGroup            string
	LogStream           string
	SubscriptionFilters []string
}

// MetaOf extracts the shared context from an envelope.
func MetaOf(env *event.LogEnvelope) Meta {
	return Meta{
		Owner:               env.Owner,
		LogGroup:            env.LogGroup,
		LogStream:           env.LogStream,
		SubscriptionFilters: env.SubscriptionFilters,
	}
}

// Transformer is the interface every per-event transform satisfies.
// Implementations must be safe for concurrent use.
type Transformer interface {
	// Name returns the key this transform is registered under.
	Name() string
	// Transform renders one event. It may block, e.g. to call a remote service.
	Transform(ctx context.Context, meta Meta, ev event.LogEvent) ([]byte, error)
}

// Func adapts a plain function to Transformer.
type Func struct {
	Key string
	Fn  func(ctx context.Context, meta Meta, ev event.LogEvent) ([]byte, error)
}

func (f Func) Name() string { return f.Key }

func (f Func) Transform(ctx context.Context, meta Meta, ev event.LogEvent) ([]byte, error) {
	return f.Fn(ctx, meta, ev)
}
