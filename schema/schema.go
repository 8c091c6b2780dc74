package schema

import "time"

type Value struct {
	Timestamp time.Time
	Value     float64
}

// Sample is one chart point emitted by the poll feed.
type Sample struct {
	SeriesID  int       `json:"seriesId"`
	X         uint64    `json:"x"`
	Y         float64   `json:"y"`
	Timestamp time.Time `json:"-"`
}

func (s Sample) Name() string {
	return "sample"
}

func (s Sample) Value() Value {
	return Value{Timestamp: s.Timestamp, Value: s.Y}
}
