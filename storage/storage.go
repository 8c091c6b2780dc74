package storage

import (
	"github.com/minor-industries/protoplot/schema"
)

// StorageBackend persists emitted samples of the current run.
type StorageBackend interface {
	InsertSample(s schema.Sample) error

	// LoadSamples returns samples of one series with X > afterX, ordered by X.
	// A negative afterX loads the whole series.
	LoadSamples(seriesID int, afterX int64) ([]schema.Sample, error)
}
