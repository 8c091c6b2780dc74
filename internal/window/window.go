// Package window keeps the most recent samples of each series in memory.
package window

import (
	"github.com/gammazero/deque"
	"github.com/minor-industries/protoplot/schema"
	"sort"
	"sync"
)

const DefaultSize = 600

type Window struct {
	lock   sync.Mutex
	size   int
	series map[int]*deque.Deque[schema.Sample]
}

func New(size int) *Window {
	if size <= 0 {
		size = DefaultSize
	}
	return &Window{
		size:   size,
		series: map[int]*deque.Deque[schema.Sample]{},
	}
}

func (w *Window) Push(s schema.Sample) {
	w.lock.Lock()
	defer w.lock.Unlock()

	q, ok := w.series[s.SeriesID]
	if !ok {
		q = deque.New[schema.Sample](0, 64)
		w.series[s.SeriesID] = q
	}

	q.PushBack(s)
	for q.Len() > w.size {
		q.PopFront()
	}
}

// After returns the retained samples of a series with X > x, oldest first.
// A negative x returns everything retained.
func (w *Window) After(seriesID int, x int64) []schema.Sample {
	w.lock.Lock()
	defer w.lock.Unlock()

	q, ok := w.series[seriesID]
	if !ok {
		return nil
	}

	var result []schema.Sample
	for i := 0; i < q.Len(); i++ {
		s := q.At(i)
		if x >= 0 && s.X <= uint64(x) {
			continue
		}
		result = append(result, s)
	}
	return result
}

// All returns every retained sample with X > x ordered by X. Samples sharing
// an X are ordered by ascending series id.
func (w *Window) All(x int64) []schema.Sample {
	w.lock.Lock()
	ids := make([]int, 0, len(w.series))
	for id := range w.series {
		ids = append(ids, id)
	}
	w.lock.Unlock()

	sort.Ints(ids)

	allSeries := make([][]schema.Sample, len(ids))
	for i, id := range ids {
		allSeries[i] = w.After(id, x)
	}

	var result []schema.Sample
	interleave(allSeries, func(s schema.Sample) {
		result = append(result, s)
	})
	return result
}
