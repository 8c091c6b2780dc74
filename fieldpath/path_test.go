package fieldpath

import (
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParse(t *testing.T) {
	p, err := Parse("pose-position-x")
	require.NoError(t, err)
	require.Equal(t, Path{"pose", "position", "x"}, p)
	require.Equal(t, "x", p.Terminal())
	require.Equal(t, "pose-position-x", p.String())

	p, err = Parse(" voltage ")
	require.NoError(t, err)
	require.Equal(t, Path{"voltage"}, p)
}

func TestParseRejectsEmpty(t *testing.T) {
	for _, s := range []string{"", "  ", "a--b", "-a", "a-"} {
		_, err := Parse(s)
		require.Error(t, err, s)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := Path{"a", "b"}
	c := p.Clone()
	c[0] = "z"
	require.Equal(t, "a", p[0])
	require.Nil(t, Path(nil).Clone())
}
