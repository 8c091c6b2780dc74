package computed_series

import (
	"github.com/gammazero/deque"
	"github.com/minor-industries/protoplot/schema"
	"time"
)

// ComputedSeries applies a Fcn over a sliding time window.
type ComputedSeries struct {
	values   *deque.Deque[schema.Value]
	fcn      Fcn
	duration time.Duration
}

func NewComputedSeries(
	fcn Fcn,
	duration time.Duration,
) *ComputedSeries {
	return &ComputedSeries{
		values:   deque.New[schema.Value](0, 64),
		duration: duration,
		fcn:      fcn,
	}
}

func (cs *ComputedSeries) removeOld(now time.Time) {
	cutoff := now.Add(-cs.duration)

	for cs.values.Len() > 0 {
		v := cs.values.Front()
		if !v.Timestamp.Before(cutoff) {
			break
		}
		cs.fcn.RemoveValue(v)
		cs.values.PopFront()
	}
}

func (cs *ComputedSeries) ProcessNewValues(values []schema.Value) []schema.Value {
	result := make([]schema.Value, 0, len(values))

	for _, v := range values {
		cs.fcn.AddValue(v)
		cs.values.PushBack(v)
		cs.removeOld(v.Timestamp)

		newValue, ok := cs.fcn.Compute(cs.values)
		if !ok {
			continue
		}

		result = append(result, schema.Value{
			Timestamp: v.Timestamp,
			Value:     newValue,
		})
	}

	return result
}
