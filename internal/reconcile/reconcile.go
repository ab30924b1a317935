// Package reconcile keeps a transformed batch under the response size ceiling
// by evicting records that will be re-ingested instead of returned.
package reconcile

import (
	"github.com/gyaneshwarpardhi/logbridge/internal/record"
)

// Plan is the outcome of reconciling one batch.
type Plan struct {
	// Records is the reconciled copy of the outputs; evicted entries are Dropped
	// and carry no payload.
	Records []record.OutputRecord
	// InitialSize is the projected size before eviction, ProjectedSize after.
	InitialSize   int
	ProjectedSize int
	// Evicted lists the indexes of evicted records in ascending order, and
	// Candidates their original input bytes in the same order.
	Evicted    []int
	Candidates []record.ReingestCandidate
}

// Projected sums the serialized size of every record that is not
// ProcessingFailed.
func Projected(outputs []record.OutputRecord) int {
	size := 0
	for _, rec := range outputs {
		if rec.Status == record.StatusProcessingFailed {
			continue
		}
		size += rec.ProjectedSize()
	}
	return size
}

// Reconcile evicts Ok records from the start of the batch until the projected
// size fits ceiling. inputs and outputs are index-aligned and left untouched.
//
// Eviction order is always ascending index, never size-optimal, so a given
// batch always evicts the same records. An evicted record keeps its ID in
// the response, so only its payload is subtracted.
func Reconcile(inputs []record.InputRecord, outputs []record.OutputRecord, ceiling int) Plan {
	records := make([]record.OutputRecord, len(outputs))
	copy(records, outputs)

	size := Projected(records)
	plan := Plan{Records: records, InitialSize: size}

	for i := 0; i < len(records) && size > ceiling; i++ {
		rec := &records[i]
		if rec.Status != record.StatusOk {
			continue
		}
		size -= rec.PayloadSize()
		rec.Payload = nil
		rec.Status = record.StatusDropped
		plan.Evicted = append(plan.Evicted, i)
		plan.Candidates = append(plan.Candidates, record.ReingestCandidate{Data: inputs[i].Data})
	}

	plan.ProjectedSize = size
	return plan
}
