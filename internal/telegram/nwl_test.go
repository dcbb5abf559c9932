package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNWLPresent(t *testing.T) {
	var tg = &Telegram{Frame: []byte{0x81, 0x42, 0x90}}
	require.NoError(t, parseNWL(tg))
	assert.True(t, tg.NWL.Present)
	assert.Equal(t, byte(0x42), tg.NWL.Info)
	assert.Equal(t, 2, tg.Parsed)
}

func TestParseNWLAbsent(t *testing.T) {
	var tg = &Telegram{Frame: []byte{0x90, 0x00}}
	require.NoError(t, parseNWL(tg))
	assert.False(t, tg.NWL.Present)
	assert.Equal(t, 0, tg.Parsed)
}
