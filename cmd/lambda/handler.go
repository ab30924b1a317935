package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/gyaneshwarpardhi/logbridge/internal/record"
	"github.com/gyaneshwarpardhi/logbridge/internal/wire"
)

type invoker interface {
	Invoke(ctx context.Context, batch *record.Batch) (*record.Response, error)
}

type handler struct {
	eng invoker
}

// Handle transforms one Firehose batch. A returned error fails the whole
// invocation and Firehose retries the batch.
func (h *handler) Handle(ctx context.Context, ev events.KinesisFirehoseEvent) (events.KinesisFirehoseResponse, error) {
	batch, err := wire.ToBatch(ev)
	if err != nil {
		return events.KinesisFirehoseResponse{}, fmt.Errorf("invalid firehose event: %w", err)
	}
	resp, err := h.eng.Invoke(ctx, batch)
	if err != nil {
		return events.KinesisFirehoseResponse{}, err
	}
	return wire.FromResponse(resp), nil
}
