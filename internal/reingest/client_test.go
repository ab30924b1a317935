package reingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/logbridge/internal/record"
)

// scriptedSink answers each call with the next step of its script; the last
// step repeats forever.
type scriptedSink struct {
	mu    sync.Mutex
	steps []func(records [][]byte) ([]ItemResult, error)
	calls [][]string
}

func (s *scriptedSink) PutRecordBatch(_ context.Context, _ string, records [][]byte) ([]ItemResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sent := make([]string, len(records))
	for i, r := range records {
		sent[i] = string(r)
	}
	s.calls = append(s.calls, sent)
	step := s.steps[len(s.steps)-1]
	if len(s.calls) <= len(s.steps) {
		step = s.steps[len(s.calls)-1]
	}
	return step(records)
}

func acceptAll(records [][]byte) ([]ItemResult, error) {
	return make([]ItemResult, len(records)), nil
}

// rejectMatching rejects every record whose content is in names.
func rejectMatching(names ...string) func([][]byte) ([]ItemResult, error) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(records [][]byte) ([]ItemResult, error) {
		out := make([]ItemResult, len(records))
		for i, r := range records {
			if set[string(r)] {
				out[i] = ItemResult{ErrorCode: "ServiceUnavailableException", ErrorMessage: "slow down"}
			}
		}
		return out, nil
	}
}

func candidates(names ...string) []record.ReingestCandidate {
	out := make([]record.ReingestCandidate, len(names))
	for i, n := range names {
		out[i] = record.ReingestCandidate{Data: []byte(n)}
	}
	return out
}

var dest = Destination{Region: "us-east-1", Name: "stream"}

func TestPut_AcceptedFirstTry(t *testing.T) {
	sink := &scriptedSink{steps: []func([][]byte) ([]ItemResult, error){acceptAll}}
	res, err := NewClient(sink, Options{}).Put(context.Background(), dest, candidates("a", "b"))

	require.NoError(t, err)
	assert.Equal(t, Result{Attempts: 1, Records: 2}, res)
	assert.Equal(t, [][]string{{"a", "b"}}, sink.calls)
}

func TestPut_RetriesOnlyFailedSubsetInOrder(t *testing.T) {
	sink := &scriptedSink{steps: []func([][]byte) ([]ItemResult, error){
		rejectMatching("b", "d"),
		acceptAll,
	}}
	res, err := NewClient(sink, Options{MaxAttempts: 20}).Put(context.Background(), dest, candidates("a", "b", "c", "d"))

	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 4, res.Records)
	assert.Equal(t, [][]string{{"a", "b", "c", "d"}, {"b", "d"}}, sink.calls)
}

func TestPut_ExhaustsAfterMaxAttempts(t *testing.T) {
	sink := &scriptedSink{steps: []func([][]byte) ([]ItemResult, error){rejectMatching("b")}}
	res, err := NewClient(sink, Options{MaxAttempts: 20}).Put(context.Background(), dest, candidates("a", "b"))

	require.Error(t, err)
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 20, exhausted.Attempts)
	assert.Contains(t, err.Error(), "after 20 attempts")
	assert.Contains(t, err.Error(), "ServiceUnavailableException")

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Failed)

	assert.Equal(t, 20, res.Attempts)
	assert.Len(t, sink.calls, 20)
	for _, call := range sink.calls[1:] {
		assert.Equal(t, []string{"b"}, call)
	}
}

func TestPut_TransportErrorRetriesWholeSet(t *testing.T) {
	boom := errors.New("connection reset")
	sink := &scriptedSink{steps: []func([][]byte) ([]ItemResult, error){
		func([][]byte) ([]ItemResult, error) { return nil, boom },
		acceptAll,
	}}
	res, err := NewClient(sink, Options{}).Put(context.Background(), dest, candidates("a", "b"))

	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, [][]string{{"a", "b"}, {"a", "b"}}, sink.calls)
}

func TestPut_TransportErrorExhausts(t *testing.T) {
	boom := errors.New("connection reset")
	sink := &scriptedSink{steps: []func([][]byte) ([]ItemResult, error){
		func([][]byte) ([]ItemResult, error) { return nil, boom },
	}}
	_, err := NewClient(sink, Options{MaxAttempts: 3}).Put(context.Background(), dest, candidates("a"))

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, sink.calls, 3)
}

func TestPut_MismatchedResultCountIsAFailure(t *testing.T) {
	sink := &scriptedSink{steps: []func([][]byte) ([]ItemResult, error){
		func([][]byte) ([]ItemResult, error) { return []ItemResult{{}}, nil },
		acceptAll,
	}}
	res, err := NewClient(sink, Options{}).Put(context.Background(), dest, candidates("a", "b"))

	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []string{"a", "b"}, sink.calls[1])
}

func TestPut_SingleAttemptBudget(t *testing.T) {
	sink := &scriptedSink{steps: []func([][]byte) ([]ItemResult, error){rejectMatching("a")}}
	_, err := NewClient(sink, Options{MaxAttempts: 1}).Put(context.Background(), dest, candidates("a"))

	require.Error(t, err)
	assert.Len(t, sink.calls, 1)
}

func TestPut_NoCandidates(t *testing.T) {
	sink := &scriptedSink{steps: []func([][]byte) ([]ItemResult, error){acceptAll}}
	res, err := NewClient(sink, Options{}).Put(context.Background(), dest, nil)

	require.NoError(t, err)
	assert.Zero(t, res.Attempts)
	assert.Empty(t, sink.calls)
}

func TestPut_ContextCancelledDuringBackoff(t *testing.T) {
	sink := &scriptedSink{steps: []func([][]byte) ([]ItemResult, error){rejectMatching("a")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(sink, Options{BackoffBase: time.Hour}).Put(ctx, dest, candidates("a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.calls, 1)
}

func TestBackoff(t *testing.T) {
	c := NewClient(nil, Options{BackoffBase: 100 * time.Millisecond, BackoffMax: time.Second})
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for attempt, d := range want {
		assert.Equal(t, d, c.backoff(attempt), "attempt %d", attempt)
	}

	assert.Zero(t, NewClient(nil, Options{}).backoff(3))
}
