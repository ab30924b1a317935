package record

import "encoding/base64"

// Status is the per-record result reported back to the delivery stream.
type Status string

const (
	StatusOk               Status = "Ok"
	StatusDropped          Status = "Dropped"
	StatusProcessingFailed Status = "ProcessingFailed"
)

// Valid reports whether s is one of the three terminal statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOk, StatusDropped, StatusProcessingFailed:
		return true
	}
	return false
}

// InputRecord is one record as received from the delivery stream.
// Data holds the raw envelope bytes (gzip compressed JSON).
type InputRecord struct {
	ID   string
	Data []byte
}

// OutputRecord is the transformed counterpart of an InputRecord.
// Payload is set only when Status is StatusOk.
type OutputRecord struct {
	ID      string
	Status  Status
	Payload []byte
}

// PayloadSize is the number of bytes the payload occupies on the wire,
// where it travels base64 encoded.
func (o OutputRecord) PayloadSize() int {
	if len(o.Payload) == 0 {
		return 0
	}
	return base64.StdEncoding.EncodedLen(len(o.Payload))
}

// ProjectedSize is the serialized size this record adds to the response.
func (o OutputRecord) ProjectedSize() int {
	return len(o.ID) + o.PayloadSize()
}

// ReingestCandidate carries the original bytes of a record evicted from the
// response. It never carries the transformed payload.
type ReingestCandidate struct {
	Data []byte
}

// Batch is the input of one invocation.
type Batch struct {
	InvocationID      string
	DeliveryStreamARN string
	Region            string
	Records           []InputRecord
}

// Response is the output of one invocation. Records match Batch.Records 1:1.
type Response struct {
	Records []OutputRecord
}

// Counts tallies records per status.
func (r *Response) Counts() map[Status]int {
	out := make(map[Status]int, 3)
	for _, rec := range r.Records {
		out[rec.Status]++
	}
	return out
}
