package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmbus-tools/wmbusgw/internal/crc"
)

func TestParseELLNotPresent(t *testing.T) {
	var tg = &Telegram{Frame: []byte{0x72, 0x01, 0x02}}
	require.NoError(t, parseELL(tg))
	assert.False(t, tg.ELL.Present)
	assert.Equal(t, 0, tg.Parsed)
}

func TestParseELLVUnsupported(t *testing.T) {
	var tg = &Telegram{Frame: []byte{ciELLV, 0x00, 0x00, 0x00, 0x00, 0x00}}
	var err = parseELL(tg)
	assert.ErrorIs(t, err, ErrUnsupportedELLVariant)
}

func TestParseELLIMinimal(t *testing.T) {
	var tg = &Telegram{Frame: []byte{ciELLI, 0x20, 0x01, 0x72}}
	require.NoError(t, parseELL(tg))
	assert.True(t, tg.ELL.Present)
	assert.Equal(t, byte(0x20), tg.ELL.CC)
	assert.Equal(t, byte(0x01), tg.ELL.ACC)
	assert.False(t, tg.ELL.SNPresent)
	assert.False(t, tg.ELL.IDFound)
	assert.Equal(t, 3, tg.Parsed)
}

func TestParseELLIIPayloadCRCOK(t *testing.T) {
	var trailing = []byte{0xAA, 0xBB, 0xCC}
	var check = crc.Checksum(trailing)
	var frame = []byte{ciELLII, 0x20, 0x01, 0x00, 0x00, 0x00, 0x00, byte(check), byte(check >> 8)}
	frame = append(frame, trailing...)

	var tg = &Telegram{Frame: frame}
	require.NoError(t, parseELL(tg))
	assert.True(t, tg.ELL.SNPresent)
	assert.Equal(t, ELLNoSecurity, tg.ELL.SecMode)
	assert.False(t, tg.DecryptionFailed)
	assert.Equal(t, len(frame)-len(trailing), tg.Parsed)
}

func TestParseELLIIPayloadCRCMismatch(t *testing.T) {
	var frame = []byte{ciELLII, 0x20, 0x01, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xAA, 0xBB, 0xCC}
	var tg = &Telegram{Frame: frame}
	require.NoError(t, parseELL(tg))
	assert.True(t, tg.DecryptionFailed)
	assert.Equal(t, len(frame), tg.Parsed)
}
