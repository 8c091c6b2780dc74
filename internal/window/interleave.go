package window

import (
	"github.com/minor-industries/protoplot/schema"
)

// interleave merges per-series samples, each already ordered by X, into a
// single stream ordered by X. Ties keep the order of allSeries.
func interleave(
	allSeries [][]schema.Sample,
	f func(s schema.Sample),
) {
	indices := make([]int, len(allSeries))

	remaining := 0
	for _, s := range allSeries {
		remaining += len(s)
	}

	for ; remaining > 0; remaining-- {
		found := 0
		var minX uint64
		var minIdx int

		// linear in the number of series, which stays small
		for i, s := range allSeries {
			j := indices[i]
			if j == len(s) {
				continue
			}
			v := s[j]
			if found == 0 || v.X < minX {
				minX = v.X
				minIdx = i
			}
			found++
		}

		f(allSeries[minIdx][indices[minIdx]])
		indices[minIdx]++
	}
}
