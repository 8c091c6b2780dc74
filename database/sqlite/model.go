package sqlite

type Run struct {
	ID      []byte `gorm:"primaryKey"`
	Started int64  `gorm:"not null"`
}

type Sample struct {
	ID        []byte `gorm:"primaryKey"`
	RunID     []byte `gorm:"index:idx_run_series;not null"`
	SeriesID  int    `gorm:"index:idx_run_series;not null"`
	X         uint64 `gorm:"not null"`
	Y         float64
	Timestamp int64 `gorm:"not null"`
}
