package reingest

import (
	"fmt"
	"strings"
)

// PartialFailureError reports the items the sink rejected in one attempt.
type PartialFailureError struct {
	Failed int
	Codes  []string
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d records rejected, individual error codes: %s", e.Failed, strings.Join(e.Codes, ","))
}

// ExhaustedError is returned once the attempt budget is spent. Err is the
// signal of the last attempt: a *PartialFailureError or a transport error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("could not put records after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
