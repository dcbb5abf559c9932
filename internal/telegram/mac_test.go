package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmbus-tools/wmbusgw/internal/wmbuscrypto"
)

func TestCheckMACMismatchWrongKey(t *testing.T) {
	var key, _ = wmbuscrypto.KeyFromBytes([]byte("0123456789abcdef"))
	var wrongKey, _ = wmbuscrypto.KeyFromBytes([]byte("fedcba9876543210"))

	var tg = &Telegram{Frame: []byte{0x72, 0x01, 0x02, 0x03, 0x04}}
	tg.TPL.Start = 0
	tg.AFL.MustCheckMAC = true
	tg.AFL.MCL = 0x08
	tg.AFL.Counter = 42
	tg.Keys = MeterKeys{ConfidentialityKey: wrongKey, HasConfidentiality: true}
	tg.HasKeys = true

	var input = append([]byte{tg.AFL.MCL, 42, 0, 0, 0}, tg.Frame...)
	var want, err = wmbuscrypto.CMAC(key, input)
	require.NoError(t, err)
	tg.AFL.MAC = want[:16]

	var macErr = checkMAC(tg)
	assert.ErrorIs(t, macErr, ErrMacFailed)
	assert.True(t, tg.DecryptionFailed)
}

func TestCheckMACMatch(t *testing.T) {
	var key, _ = wmbuscrypto.KeyFromBytes([]byte("0123456789abcdef"))

	var tg = &Telegram{Frame: []byte{0x72, 0x01, 0x02, 0x03, 0x04}}
	tg.TPL.Start = 0
	tg.AFL.MustCheckMAC = true
	tg.AFL.MCL = 0x08
	tg.AFL.Counter = 42
	tg.Keys = MeterKeys{ConfidentialityKey: key, HasConfidentiality: true}
	tg.HasKeys = true

	var input = append([]byte{tg.AFL.MCL, 42, 0, 0, 0}, tg.Frame...)
	var want, err = wmbuscrypto.CMAC(key, input)
	require.NoError(t, err)
	tg.AFL.MAC = want[:16]

	assert.NoError(t, checkMAC(tg))
	assert.False(t, tg.DecryptionFailed)
}

func TestCheckMACSkippedWhenNotRequired(t *testing.T) {
	var tg = &Telegram{}
	assert.NoError(t, checkMAC(tg))
}
