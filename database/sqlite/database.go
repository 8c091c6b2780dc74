package sqlite

import (
	"crypto/rand"
	"github.com/glebarez/sqlite"
	"github.com/minor-industries/protoplot/schema"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"time"
)

const DefaultBufferSize = 100

func Get(filename string, bufSize int) (*Backend, error) {
	db, err := gorm.Open(sqlite.Open(filename), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	for _, table := range []any{
		&Run{},
		&Sample{},
	} {
		err = db.AutoMigrate(table)
		if err != nil {
			return nil, errors.Wrap(err, "migrate")
		}
	}

	b := NewBackend(db, bufSize)
	if tx := db.Create(&Run{ID: b.runID, Started: time.Now().UnixMilli()}); tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "create run")
	}

	return b, nil
}

func RandomID() []byte {
	var result [16]byte
	_, err := rand.Read(result[:])
	if err != nil {
		panic(err)
	}
	return result[:]
}

// Backend records samples for a single run. X restarts at zero on every
// process start, so reads are scoped to the run that opened the backend.
type Backend struct {
	db    *gorm.DB
	runID []byte

	objects chan any
}

func NewBackend(
	db *gorm.DB,
	bufSize int,
) *Backend {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Backend{
		db:      db,
		runID:   RandomID(),
		objects: make(chan any, bufSize),
	}
}

func (b *Backend) RunID() []byte {
	return b.runID
}

// InsertSample queues the sample for the writer. It blocks when the buffer is full.
func (b *Backend) InsertSample(s schema.Sample) error {
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	b.objects <- &Sample{
		ID:        RandomID(),
		RunID:     b.runID,
		SeriesID:  s.SeriesID,
		X:         s.X,
		Y:         s.Y,
		Timestamp: ts.UnixMilli(),
	}
	return nil
}

func (b *Backend) LoadSamples(seriesID int, afterX int64) ([]schema.Sample, error) {
	q := b.db.Where("run_id = ? and series_id = ?", b.runID, seriesID)
	if afterX >= 0 {
		q = q.Where("x > ?", afterX)
	}

	var rows []Sample
	tx := q.Order("x asc").Find(&rows)
	if tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "find")
	}

	result := make([]schema.Sample, len(rows))
	for idx, row := range rows {
		result[idx] = schema.Sample{
			SeriesID:  row.SeriesID,
			X:         row.X,
			Y:         row.Y,
			Timestamp: time.UnixMilli(row.Timestamp),
		}
	}

	return result, nil
}
