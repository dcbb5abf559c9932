package linkmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseRender(t *testing.T) {
	var set, err = Parse("c1,t1")
	require.NoError(t, err)
	assert.True(t, set.Has(C1))
	assert.True(t, set.Has(T1))
	assert.False(t, set.Has(S1))
	assert.Equal(t, "c1,t1", set.String())
}

func TestParseAny(t *testing.T) {
	var set, err = Parse("any")
	require.NoError(t, err)
	assert.Equal(t, All(), set)
}

func TestParseUnknown(t *testing.T) {
	var _, err = Parse("bogus")
	assert.Error(t, err)
}

func TestUnionIntersectSubset(t *testing.T) {
	var a = Of(C1, T1)
	var b = Of(T1, S1)
	assert.Equal(t, Of(C1, T1, S1), a.Union(b))
	assert.Equal(t, Of(T1), a.Intersect(b))
	assert.True(t, Of(T1).Subset(a))
	assert.False(t, a.Subset(Of(T1)))
}

func TestParseRenderRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var want Set
		var n = rapid.IntRange(0, int(numModes)-1).Draw(rt, "n")
		for i := 0; i < n; i++ {
			var m = Mode(rapid.IntRange(0, int(numModes)-1).Draw(rt, "m"))
			want = want.Add(m)
		}
		var got, err = Parse(want.String())
		require.NoError(rt, err)
		assert.Equal(rt, want, got)
	})
}
