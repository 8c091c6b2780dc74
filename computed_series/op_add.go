package computed_series

import (
	"github.com/minor-industries/protoplot/schema"
)

type OpAdd struct {
	X float64
}

func (o OpAdd) ProcessNewValues(values []schema.Value) []schema.Value {
	result := make([]schema.Value, len(values))
	for idx, value := range values {
		result[idx] = schema.Value{
			Timestamp: value.Timestamp,
			Value:     value.Value + o.X,
		}
	}
	return result
}

type OpScale struct {
	X float64
}

func (o OpScale) ProcessNewValues(values []schema.Value) []schema.Value {
	result := make([]schema.Value, len(values))
	for idx, value := range values {
		result[idx] = schema.Value{
			Timestamp: value.Timestamp,
			Value:     value.Value * o.X,
		}
	}
	return result
}
