package mfct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecodeKnown(t *testing.T) {
	assert.Equal(t, "SEN", Decode(0x4CAE))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var raw, err = Encode("SEN")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x4CAE), raw)
	assert.Equal(t, "SEN", Decode(raw))
}

func TestEncodeRejectsBadLength(t *testing.T) {
	var _, err = Encode("EL")
	assert.Error(t, err)
}

// Every 16-bit manufacturer id in the documented range round-trips through
// Decode/Encode.
func TestManufacturerFlagRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var m = uint16(rapid.IntRange(0x0421, 0x6B5A).Draw(rt, "m"))
		var code = Decode(m)
		var back, err = Encode(code)
		require.NoError(rt, err)
		assert.Equal(rt, m, back)
	})
}
