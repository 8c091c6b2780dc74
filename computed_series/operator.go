package computed_series

import (
	"github.com/minor-industries/protoplot/schema"
)

type Operator interface {
	ProcessNewValues(values []schema.Value) []schema.Value
}

type Identity struct{}

func (i Identity) ProcessNewValues(values []schema.Value) []schema.Value {
	return values
}

type chain struct {
	ops []Operator
}

func (c chain) ProcessNewValues(values []schema.Value) []schema.Value {
	for _, op := range c.ops {
		values = op.ProcessNewValues(values)
	}
	return values
}
