package computed_series

import (
	"github.com/minor-industries/protoplot/schema"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func values(vs ...float64) []schema.Value {
	result := make([]schema.Value, len(vs))
	for i, v := range vs {
		result[i] = schema.Value{Timestamp: t0.Add(time.Duration(i) * time.Second), Value: v}
	}
	return result
}

func justValues(vs []schema.Value) []float64 {
	result := make([]float64, len(vs))
	for i, v := range vs {
		result[i] = v.Value
	}
	return result
}

func TestAvgWindow(t *testing.T) {
	op, err := Parse("avg 2s")
	require.NoError(t, err)

	out := op.ProcessNewValues(values(1, 3, 5, 7))
	// each window covers the current point and the two before it
	require.Equal(t, []float64{1, 2, 3, 5}, justValues(out))
}

func TestAvgTriangle(t *testing.T) {
	op, err := Parse("avg 2s triangle")
	require.NoError(t, err)

	out := op.ProcessNewValues(values(0, 6))
	// weights 1/2 and 1 for the points 1s and 0s old
	require.InDelta(t, 4.0, out[1].Value, 1e-9)
}

func TestChain(t *testing.T) {
	op, err := Parse("add 1 | gt 2 | scale 10")
	require.NoError(t, err)

	out := op.ProcessNewValues(values(0, 1, 2, 3))
	require.Equal(t, []float64{30, 40}, justValues(out))
}

func TestCtoF(t *testing.T) {
	op, err := Parse("CtoF")
	require.NoError(t, err)
	require.Equal(t, []float64{32, 212}, justValues(op.ProcessNewValues(values(0, 100))))
}

func TestGate(t *testing.T) {
	op, err := Parse("gate 10s 3")
	require.NoError(t, err)
	require.Equal(t, []float64{5, 1}, justValues(op.ProcessNewValues(values(1, 2, 5, 1))))
}

func TestParseErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"median 3s",
		"avg",
		"avg soon",
		"avg -1s",
		"avg 1s square",
		"gt",
		"gt x",
		"add 1 2",
		"gate 1s",
		"avg 1s | bogus",
	} {
		_, err := Parse(expr)
		require.Error(t, err, expr)
	}
}

func TestDerivedKeepsX(t *testing.T) {
	d, err := NewDerived(2, "gt 0")
	require.NoError(t, err)

	_, ok := d.Process(schema.Sample{SeriesID: 1, X: 4, Y: -1, Timestamp: t0})
	require.False(t, ok)

	s, ok := d.Process(schema.Sample{SeriesID: 1, X: 5, Y: 3, Timestamp: t0})
	require.True(t, ok)
	require.Equal(t, schema.Sample{SeriesID: 2, X: 5, Y: 3, Timestamp: t0}, s)

	_, err = NewDerived(3, "nope")
	require.Error(t, err)
}
