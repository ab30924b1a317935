// Package firehose implements the re-ingestion sink on top of the Kinesis
// Data Firehose PutRecordBatch API.
package firehose

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"

	"github.com/gyaneshwarpardhi/logbridge/internal/reingest"
)

// Service limits of a single PutRecordBatch request.
const (
	MaxRecordsPerCall = 500
	MaxBytesPerCall   = 4 * 1024 * 1024

	// ErrorCodeRequestFailed marks records of a chunk whose request failed
	// as a whole while other chunks of the same batch went through.
	ErrorCodeRequestFailed = "RequestFailed"
)

// API is the subset of the Firehose client used by Sink.
type API interface {
	PutRecordBatch(ctx context.Context, params *firehose.PutRecordBatchInput, optFns ...func(*firehose.Options)) (*firehose.PutRecordBatchOutput, error)
}

// Sink sends records to a delivery stream, splitting batches that exceed
// the per-request limits.
type Sink struct {
	api        API
	maxRecords int
	maxBytes   int
}

var _ reingest.Sink = (*Sink)(nil)

// New wraps api. Non-positive limits fall back to the service limits.
func New(api API, maxRecords, maxBytes int) *Sink {
	if maxRecords <= 0 || maxRecords > MaxRecordsPerCall {
		maxRecords = MaxRecordsPerCall
	}
	if maxBytes <= 0 || maxBytes > MaxBytesPerCall {
		maxBytes = MaxBytesPerCall
	}
	return &Sink{api: api, maxRecords: maxRecords, maxBytes: maxBytes}
}

// PutRecordBatch implements reingest.Sink. Results keep the order of records
// across chunks. The error is non-nil only when every chunk failed.
func (s *Sink) PutRecordBatch(ctx context.Context, stream string, records [][]byte) ([]reingest.ItemResult, error) {
	results := make([]reingest.ItemResult, len(records))
	chunks := s.chunk(records)

	var lastErr error
	failedChunks := 0
	for _, c := range chunks {
		part := records[c.start:c.end]
		out, err := s.putChunk(ctx, stream, part)
		if err != nil {
			lastErr = err
			failedChunks++
			for i := c.start; i < c.end; i++ {
				results[i] = reingest.ItemResult{ErrorCode: ErrorCodeRequestFailed, ErrorMessage: err.Error()}
			}
			continue
		}
		copy(results[c.start:c.end], out)
	}

	if failedChunks > 0 && failedChunks == len(chunks) {
		return nil, lastErr
	}
	return results, nil
}

func (s *Sink) putChunk(ctx context.Context, stream string, part [][]byte) ([]reingest.ItemResult, error) {
	entries := make([]types.Record, len(part))
	for i, data := range part {
		entries[i] = types.Record{Data: data}
	}
	out, err := s.api.PutRecordBatch(ctx, &firehose.PutRecordBatchInput{
		DeliveryStreamName: aws.String(stream),
		Records:            entries,
	})
	if err != nil {
		return nil, fmt.Errorf("firehose PutRecordBatch %s: %w", stream, err)
	}
	if len(out.RequestResponses) != len(part) {
		return nil, fmt.Errorf("firehose PutRecordBatch %s: %d responses for %d records", stream, len(out.RequestResponses), len(part))
	}

	results := make([]reingest.ItemResult, len(part))
	for i, resp := range out.RequestResponses {
		results[i] = reingest.ItemResult{
			ErrorCode:    aws.ToString(resp.ErrorCode),
			ErrorMessage: aws.ToString(resp.ErrorMessage),
		}
	}
	return results, nil
}

type span struct{ start, end int }

// chunk splits records into contiguous runs within the record and byte limits.
// A single record larger than the byte limit travels alone and is left for
// the service to reject.
func (s *Sink) chunk(records [][]byte) []span {
	var out []span
	start, size := 0, 0
	for i, r := range records {
		n := i - start
		if n > 0 && (n >= s.maxRecords || size+len(r) > s.maxBytes) {
			out = append(out, span{start, i})
			start, size = i, 0
		}
		size += len(r)
	}
	if start < len(records) {
		out = append(out, span{start, len(records)})
	}
	return out
}

// Provider builds one Firehose client per region on first use and shares it
// afterwards. The handles are safe for concurrent use.
type Provider struct {
	endpoint   string
	maxRecords int
	maxBytes   int
	load       func(ctx context.Context, region string) (API, error)

	mu    sync.Mutex
	sinks map[string]*Sink
}

// NewProvider returns a Provider using the default AWS credential chain.
// endpoint overrides the service URL, e.g. for LocalStack.
func NewProvider(endpoint string, maxRecords, maxBytes int) *Provider {
	p := &Provider{
		endpoint:   endpoint,
		maxRecords: maxRecords,
		maxBytes:   maxBytes,
		sinks:      make(map[string]*Sink),
	}
	p.load = p.loadClient
	return p
}

// ForRegion returns the sink for region.
func (p *Provider) ForRegion(ctx context.Context, region string) (reingest.Sink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sinks[region]; ok {
		return s, nil
	}
	api, err := p.load(ctx, region)
	if err != nil {
		return nil, err
	}
	s := New(api, p.maxRecords, p.maxBytes)
	p.sinks[region] = s
	return s, nil
}

func (p *Provider) loadClient(ctx context.Context, region string) (API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config for %s: %w", region, err)
	}
	return firehose.NewFromConfig(cfg, func(o *firehose.Options) {
		if p.endpoint != "" {
			o.BaseEndpoint = aws.String(p.endpoint)
		}
	}), nil
}
