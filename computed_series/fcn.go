package computed_series

import (
	"github.com/gammazero/deque"
	"github.com/minor-industries/protoplot/schema"
	"time"
)

type Fcn interface {
	// AddValue and RemoveValue may be used when aggregations may be used instead of individual points, e.g. avg
	AddValue(v schema.Value)
	RemoveValue(v schema.Value)

	// Compute may be used instead of AddValue and RemoveValue when individual points in the window are needed
	Compute(values *deque.Deque[schema.Value]) (float64, bool)
}

type FcnAvg struct {
	count int
	sum   float64
}

func (f *FcnAvg) AddValue(v schema.Value) {
	f.count++
	f.sum += v.Value
}

func (f *FcnAvg) RemoveValue(v schema.Value) {
	f.count--
	f.sum -= v.Value
}

func (f *FcnAvg) Compute(_ *deque.Deque[schema.Value]) (float64, bool) {
	if f.count <= 0 {
		return 0, false
	}

	return f.sum / float64(f.count), true
}

// FcnAvgWindow weights each point by how recent it is inside the window.
type FcnAvgWindow struct {
	duration time.Duration
	scale    float64
}

func (f *FcnAvgWindow) AddValue(v schema.Value) {}

func (f *FcnAvgWindow) RemoveValue(v schema.Value) {}

func (f *FcnAvgWindow) Compute(values *deque.Deque[schema.Value]) (float64, bool) {
	count := 0.0
	sum := 0.0

	if values.Len() == 0 {
		return 0, false
	}

	now := values.Back().Timestamp
	tStart := now.Add(-f.duration)

	for i := 0; i < values.Len(); i++ {
		v := values.At(i)

		dt := v.Timestamp.Sub(tStart)
		w := float64(dt) * f.scale

		sum += v.Value * w
		count += w
	}

	if count == 0 {
		return 0, false
	}

	return sum / count, true
}

// FcnGate passes values through once any value exceeded target.
type FcnGate struct {
	target float64
	open   bool
}

func (f *FcnGate) AddValue(v schema.Value) {}

func (f *FcnGate) RemoveValue(v schema.Value) {}

func (f *FcnGate) Compute(values *deque.Deque[schema.Value]) (float64, bool) {
	sz := values.Len()
	if sz == 0 {
		return 0, false
	}

	lastValue := values.At(sz - 1).Value

	if lastValue > f.target {
		f.open = true
	}

	if f.open {
		return lastValue, true
	}
	return 0, false
}
