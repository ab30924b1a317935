package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gyaneshwarpardhi/logbridge/internal/event"
)

// Newline emits the raw message followed by a newline.
func Newline() Transformer {
	return Func{
		Key: "newline",
		Fn: func(_ context.Context, _ Meta, ev event.LogEvent) ([]byte, error) {
			out := make([]byte, 0, len(ev.Message)+1)
			out = append(out, ev.Message...)
			return append(out, '\n'), nil
		},
	}
}

type jsonLine struct {
	LogGroup  string `json:"logGroup"`
	LogStream string `json:"logStream"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Data      string `json:"data"`
}

// JSONLines emits one JSON object per event, tagged with its log group and
// stream, followed by a newline. Suited to VPC flow logs and other sources
// where the message alone loses its origin.
func JSONLines() Transformer {
	return Func{
		Key: "json",
		Fn: func(_ context.Context, meta Meta, ev event.LogEvent) ([]byte, error) {
			b, err := json.Marshal(jsonLine{
				LogGroup:  meta.LogGroup,
				LogStream: meta.LogStream,
				ID:        ev.ID,
				Timestamp: ev.Timestamp,
				Data:      ev.Message,
			})
			if err != nil {
				return nil, fmt.Errorf("json transform: %w", err)
			}
			return append(b, '\n'), nil
		},
	}
}
