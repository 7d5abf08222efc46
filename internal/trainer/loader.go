package trainer

import (
	"fmt"

	"github.com/born-ml/lightning/internal/lightning"
)

// DataLoader yields the batches of one epoch by index.
type DataLoader interface {
	Len() int
	Batch(idx int) (lightning.Batch, error)
}

// SliceLoader serves batches held in memory.
type SliceLoader []lightning.Batch

// Len returns the number of batches.
func (s SliceLoader) Len() int { return len(s) }

// Batch returns batch idx.
func (s SliceLoader) Batch(idx int) (lightning.Batch, error) {
	if idx < 0 || idx >= len(s) {
		return lightning.Batch{}, fmt.Errorf("batch index %d out of range [0, %d)", idx, len(s))
	}
	return s[idx], nil
}

// limit returns how many batches to run given a configured limit.
func limit(n, maxBatches int) int {
	if maxBatches > 0 && maxBatches < n {
		return maxBatches
	}
	return n
}
