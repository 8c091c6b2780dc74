package inmem

import (
	"github.com/minor-industries/protoplot/schema"
	"github.com/minor-industries/protoplot/storage"
	"github.com/stretchr/testify/require"
	"testing"
)

var _ storage.StorageBackend = (*Backend)(nil)

func TestLoadSamples(t *testing.T) {
	b := NewBackend()
	for x := uint64(0); x < 3; x++ {
		require.NoError(t, b.InsertSample(schema.Sample{SeriesID: 1, X: x, Y: float64(x) / 2}))
	}
	require.NoError(t, b.InsertSample(schema.Sample{SeriesID: 2, X: 0, Y: 9}))

	all, err := b.LoadSamples(1, -1)
	require.NoError(t, err)
	require.Len(t, all, 3)

	after, err := b.LoadSamples(1, 0)
	require.NoError(t, err)
	require.Equal(t, []schema.Sample{
		{SeriesID: 1, X: 1, Y: 0.5},
		{SeriesID: 1, X: 2, Y: 1},
	}, after)

	none, err := b.LoadSamples(3, -1)
	require.NoError(t, err)
	require.Empty(t, none)
}
