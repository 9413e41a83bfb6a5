package amm

import "fmt"

// IndexRange is an inclusive range of indices.
type IndexRange struct {
	From uint64
	To   uint64
}

// Len returns the number of indices in the range.
func (r IndexRange) Len() int {
	return int(r.To - r.From + 1)
}

// SplitRange splits an index range into pages of at most size indices.
func SplitRange(from, to, size uint64) ([]IndexRange, error) {
	if size == 0 {
		return nil, fmt.Errorf("page size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("range end must be >= range start")
	}

	ranges := make([]IndexRange, 0)
	start := from
	for start <= to {
		remaining := to - start + 1
		var end uint64
		if remaining <= size {
			end = to
		} else {
			end = start + size - 1
		}
		ranges = append(ranges, IndexRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
