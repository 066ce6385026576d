package source

import (
	"context"
	"fmt"
)

// BlockRange is an inclusive span of block numbers.
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) Len() uint64 {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// Split cuts the range into consecutive batches of at most size blocks.
func (r BlockRange) Split(size uint64) ([]BlockRange, error) {
	if size == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if r.To < r.From {
		return nil, fmt.Errorf("to block %d is before from block %d", r.To, r.From)
	}

	batches := make([]BlockRange, 0, (r.Len()+size-1)/size)
	for start := r.From; ; start += size {
		end := r.To
		if r.To-start >= size {
			end = start + size - 1
		}
		batches = append(batches, BlockRange{From: start, To: end})
		if end == r.To {
			return batches, nil
		}
	}
}

// resolveRange fills an open upper bound (zero) with the node's head block.
func resolveRange(ctx context.Context, node Node, from, to uint64) (BlockRange, error) {
	if to == 0 {
		latest, err := node.LatestBlockNumber(ctx)
		if err != nil {
			return BlockRange{}, fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}
	return BlockRange{From: from, To: to}, nil
}
