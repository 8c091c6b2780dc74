package computed_series

import (
	"github.com/minor-industries/protoplot/schema"
	"github.com/pkg/errors"
)

// Derived is a series computed from the primary feed samples. A derived
// sample keeps the X of the sample it was computed from.
type Derived struct {
	SeriesID int
	Expr     string
	op       Operator
}

func NewDerived(seriesID int, expr string) (*Derived, error) {
	op, err := Parse(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "derived series %d", seriesID)
	}
	return &Derived{SeriesID: seriesID, Expr: expr, op: op}, nil
}

// Process is not safe for concurrent use; windowed operators keep state.
func (d *Derived) Process(s schema.Sample) (schema.Sample, bool) {
	out := d.op.ProcessNewValues([]schema.Value{s.Value()})
	if len(out) == 0 {
		return schema.Sample{}, false
	}
	last := out[len(out)-1]
	return schema.Sample{
		SeriesID:  d.SeriesID,
		X:         s.X,
		Y:         last.Value,
		Timestamp: last.Timestamp,
	}, true
}
