package vectorstore

import "github.com/hupe1980/vecidx/storage"

const (
	// minPreferredBatch is the smallest batch considered when at least that
	// many vectors fit into a batch block.
	minPreferredBatch = 5

	// maxBatch is the largest batch a Ref can address.
	maxBatch = 1 << slotBits

	// maxBatchPages bounds the size of a batch block.
	maxBatchPages = 16

	// singleVectorPages: vectors above this many pages are stored one per block.
	singleVectorPages = 4
)

// BatchSize returns how many vectors of vectorSize bytes are packed into one
// block. It picks the count with the lowest page rounding waste per vector;
// ties go to the smaller batch.
func BatchSize(vectorSize int, blocks storage.BlockStore) int {
	pageSize := blocks.PageSize()
	if vectorSize <= 0 || vectorSize > singleVectorPages*pageSize {
		return 1
	}

	limit := min(maxBatch, maxBatchPages*pageSize/vectorSize)
	if limit <= 1 {
		return 1
	}

	waste := func(n int) float64 {
		used := n * vectorSize
		return float64(blocks.Pages(used)*pageSize-used) / float64(n)
	}

	lo := 1
	if limit >= minPreferredBatch {
		lo = minPreferredBatch
	}
	best, bestWaste := lo, waste(lo)
	for n := lo + 1; n <= limit; n++ {
		if w := waste(n); w < bestWaste {
			best, bestWaste = n, w
		}
	}
	return best
}
