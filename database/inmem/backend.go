package inmem

import (
	"github.com/minor-industries/protoplot/schema"
	"sync"
)

type Backend struct {
	lock    sync.Mutex
	samples map[int][]schema.Sample
}

func NewBackend() *Backend {
	return &Backend{
		samples: map[int][]schema.Sample{},
	}
}

func (b *Backend) LoadSamples(seriesID int, afterX int64) ([]schema.Sample, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	var result []schema.Sample
	for _, s := range b.samples[seriesID] {
		if afterX >= 0 && s.X <= uint64(afterX) {
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

func (b *Backend) InsertSample(s schema.Sample) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.samples[s.SeriesID] = append(b.samples[s.SeriesID], s)
	return nil
}
