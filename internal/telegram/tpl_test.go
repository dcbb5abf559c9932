package telegram

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmbus-tools/wmbusgw/internal/wmbuscrypto"
)

func TestParseTPLConfigCBCIV(t *testing.T) {
	var tg = &Telegram{Frame: []byte{0x20, 0x05}}
	require.NoError(t, parseTPLConfig(tg))
	assert.Equal(t, TPLAESCBCIV, tg.TPL.SecMode)
	assert.Equal(t, 2, tg.TPL.NumEncrBlocks)
	assert.False(t, tg.TPL.HasCFGExt)
}

func TestParseTPLConfigNoIVWithKDF(t *testing.T) {
	var key, _ = wmbuscrypto.KeyFromBytes(make([]byte, 16))
	var tg = &Telegram{
		Frame:   []byte{0x20, 0x07, 0x10},
		Keys:    MeterKeys{ConfidentialityKey: key, HasConfidentiality: true},
		HasKeys: true,
	}
	tg.AFL.Counter = 7
	require.NoError(t, parseTPLConfig(tg))
	assert.Equal(t, TPLAESCBCNoIV, tg.TPL.SecMode)
	assert.Equal(t, 2, tg.TPL.NumEncrBlocks)
	assert.True(t, tg.TPL.HasCFGExt)
	assert.Equal(t, 1, tg.TPL.KDFSelection)
	assert.True(t, tg.TPL.HasGeneratedKey)
	assert.NotEqual(t, tg.TPL.GeneratedKenc, tg.TPL.GeneratedKmac)
}

func encryptCBC(t *testing.T, key wmbuscrypto.Key, iv [16]byte, plaintext []byte) []byte {
	t.Helper()
	var block, err = aes.NewCipher(key[:])
	require.NoError(t, err)
	var out = make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(out, plaintext)
	return out
}

func TestPotentiallyDecryptCBCIVCorrectKey(t *testing.T) {
	var key, _ = wmbuscrypto.KeyFromBytes([]byte("0123456789abcdef"))
	var tg = &Telegram{}
	tg.DLL.MfctRaw = 0x4CAE
	tg.DLL.ID = [4]byte{0x56, 0x78, 0x34, 0x12}
	tg.DLL.Version = 0x03
	tg.DLL.Type = 0x07
	tg.TPL.ACC = 0x6A
	tg.TPL.SecMode = TPLAESCBCIV
	tg.TPL.NumEncrBlocks = 2
	tg.Keys = MeterKeys{ConfidentialityKey: key, HasConfidentiality: true}
	tg.HasKeys = true

	var iv = wmbuscrypto.CBCIVFromHeader(tg.DLL.MfctRaw, tg.DLL.ID, tg.DLL.Version, tg.DLL.Type, tg.TPL.ACC)
	var plaintext = append([]byte{0x2F, 0x2F, 0x0C, 0x78, 0x12, 0x34, 0x56, 0x78}, make([]byte, 24)...)
	var ciphertext = encryptCBC(t, key, iv, plaintext)

	tg.Frame = ciphertext
	tg.Parsed = 0

	assert.True(t, potentiallyDecrypt(tg))
	assert.False(t, tg.DecryptionFailed)
	assert.Equal(t, plaintext, tg.Frame)
}

func TestPotentiallyDecryptCBCIVWrongKey(t *testing.T) {
	var key, _ = wmbuscrypto.KeyFromBytes([]byte("0123456789abcdef"))
	var wrongKey, _ = wmbuscrypto.KeyFromBytes([]byte("fedcba9876543210"))
	var tg = &Telegram{}
	tg.DLL.MfctRaw = 0x4CAE
	tg.DLL.ID = [4]byte{0x56, 0x78, 0x34, 0x12}
	tg.DLL.Version = 0x03
	tg.DLL.Type = 0x07
	tg.TPL.ACC = 0x6A
	tg.TPL.SecMode = TPLAESCBCIV
	tg.TPL.NumEncrBlocks = 2
	tg.Keys = MeterKeys{ConfidentialityKey: wrongKey, HasConfidentiality: true}
	tg.HasKeys = true

	var iv = wmbuscrypto.CBCIVFromHeader(tg.DLL.MfctRaw, tg.DLL.ID, tg.DLL.Version, tg.DLL.Type, tg.TPL.ACC)
	var plaintext = append([]byte{0x2F, 0x2F, 0x0C, 0x78, 0x12, 0x34, 0x56, 0x78}, make([]byte, 24)...)
	tg.Frame = encryptCBC(t, key, iv, plaintext)
	tg.Parsed = 0

	assert.False(t, potentiallyDecrypt(tg))
	assert.True(t, tg.DecryptionFailed)
	assert.True(t, tg.TriggeredWarning)
}

func TestPotentiallyDecryptNoKey(t *testing.T) {
	var tg = &Telegram{Frame: make([]byte, 32)}
	tg.TPL.SecMode = TPLAESCBCIV
	tg.TPL.NumEncrBlocks = 2

	assert.False(t, potentiallyDecrypt(tg))
	assert.False(t, tg.DecryptionFailed) // no key supplied, distinct from a failed check
}
