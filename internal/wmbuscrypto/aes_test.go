package wmbuscrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// For all frames with AES-CBC-IV security mode and the correct key, a
// telegram round-trips: decrypting what was encrypted under the same IV
// recovers the plaintext. spec §8.
func TestDecryptCBCRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var keyBytes = rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(rt, "key")
		var key, _ = KeyFromBytes(keyBytes)
		var iv [16]byte
		copy(iv[:], rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(rt, "iv"))

		var nBlocks = rapid.IntRange(1, 8).Draw(rt, "nBlocks")
		var plaintext = rapid.SliceOfN(rapid.Byte(), nBlocks*16, nBlocks*16).Draw(rt, "plaintext")
		plaintext[0], plaintext[1] = 0x2F, 0x2F

		var block, err = aes.NewCipher(key[:])
		require.NoError(rt, err)
		var ciphertext = make([]byte, len(plaintext))
		cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(ciphertext, plaintext)

		var decrypted, derr = DecryptCBC(key, iv, ciphertext)
		require.NoError(rt, derr)
		assert.Equal(rt, plaintext, decrypted)
		assert.Equal(rt, byte(0x2F), decrypted[0])
		assert.Equal(rt, byte(0x2F), decrypted[1])
	})
}

func TestCryptCTRIsSelfInverse(t *testing.T) {
	var key, _ = KeyFromBytes(make([]byte, 16))
	var iv [16]byte
	var plaintext = []byte("hello wmbus ctr!")

	var ciphertext, err = CryptCTR(key, iv, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	var recovered, err2 = CryptCTR(key, iv, ciphertext)
	require.NoError(t, err2)
	assert.Equal(t, plaintext, recovered)
}

func TestCBCIVFromHeader(t *testing.T) {
	var iv = CBCIVFromHeader(0x4CAE, [4]byte{0x78, 0x56, 0x34, 0x12}, 0x03, 0x07, 0x2A)
	assert.Equal(t, byte(0xAE), iv[0])
	assert.Equal(t, byte(0x4C), iv[1])
	assert.Equal(t, [4]byte{0x78, 0x56, 0x34, 0x12}, [4]byte(iv[2:6]))
	assert.Equal(t, byte(0x03), iv[6])
	assert.Equal(t, byte(0x07), iv[7])
	for i := 8; i < 16; i++ {
		assert.Equal(t, byte(0x2A), iv[i])
	}
}
