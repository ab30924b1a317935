package engine

import (
	"errors"
	"fmt"
)

// ErrQueueFull is returned by ProcessSync when no invocation slot is free.
var ErrQueueFull = errors.New("invocation queue full")

// FatalDecodeError means a record's envelope could not be decompressed or
// parsed. It aborts the whole invocation.
type FatalDecodeError struct {
	RecordID string
	Err      error
}

func (e *FatalDecodeError) Error() string {
	return fmt.Sprintf("record %s: %v", e.RecordID, e.Err)
}

func (e *FatalDecodeError) Unwrap() error { return e.Err }

// TransformError means the per-event transform failed. Like a decode
// failure it aborts the whole invocation.
type TransformError struct {
	RecordID string
	EventID  string
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("record %s event %s: %v", e.RecordID, e.EventID, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
