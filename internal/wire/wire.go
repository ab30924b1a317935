// Package wire converts between the Firehose data-transformation payloads
// and the bridge's record types. Both the HTTP API and the Lambda entry
// point speak this format.
package wire

import (
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/gyaneshwarpardhi/logbridge/internal/record"
)

var (
	ErrMissingRecordID   = errors.New("record without recordId")
	ErrDuplicateRecordID = errors.New("duplicate recordId")
)

// ToBatch validates ev and converts it. Record order is kept.
func ToBatch(ev events.KinesisFirehoseEvent) (*record.Batch, error) {
	batch := &record.Batch{
		InvocationID:      ev.InvocationID,
		DeliveryStreamARN: ev.DeliveryStreamArn,
		Region:            ev.Region,
		Records:           make([]record.InputRecord, 0, len(ev.Records)),
	}
	seen := make(map[string]struct{}, len(ev.Records))
	for i, r := range ev.Records {
		if r.RecordID == "" {
			return nil, fmt.Errorf("records[%d]: %w", i, ErrMissingRecordID)
		}
		if _, dup := seen[r.RecordID]; dup {
			return nil, fmt.Errorf("records[%d]: %w %q", i, ErrDuplicateRecordID, r.RecordID)
		}
		seen[r.RecordID] = struct{}{}
		batch.Records = append(batch.Records, record.InputRecord{ID: r.RecordID, Data: r.Data})
	}
	return batch, nil
}

// FromResponse converts resp. Only Ok records carry data.
func FromResponse(resp *record.Response) events.KinesisFirehoseResponse {
	out := events.KinesisFirehoseResponse{
		Records: make([]events.KinesisFirehoseResponseRecord, len(resp.Records)),
	}
	for i, rec := range resp.Records {
		r := events.KinesisFirehoseResponseRecord{
			RecordID: rec.ID,
			Result:   resultOf(rec.Status),
		}
		if rec.Status == record.StatusOk {
			r.Data = rec.Payload
		}
		out.Records[i] = r
	}
	return out
}

func resultOf(s record.Status) string {
	switch s {
	case record.StatusOk:
		return events.KinesisFirehoseTransformedStateOk
	case record.StatusDropped:
		return events.KinesisFirehoseTransformedStateDropped
	default:
		return events.KinesisFirehoseTransformedStateProcessingFailed
	}
}
