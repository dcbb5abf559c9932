package wmbuscrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// DecryptCBC decrypts ciphertext (which must be a non-zero multiple of 16
// bytes) using AES-128-CBC with the given key and IV. TPL security mode
// AES_CBC_IV derives the IV from the telegram header; AES_CBC_NO_IV callers
// pass a zero IV.
func DecryptCBC(key Key, iv [16]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("wmbuscrypto: ciphertext length %d is not a non-zero multiple of %d", len(ciphertext), aes.BlockSize)
	}
	var block, err = aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("wmbuscrypto: %w", err)
	}
	var plaintext = make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// CryptCTR XORs data with the AES-128-CTR keystream starting at the given IV,
// used by the ELL layer's AES_CTR security mode. CTR is its own inverse, so
// the same function encrypts and decrypts.
func CryptCTR(key Key, iv [16]byte, data []byte) ([]byte, error) {
	var block, err = aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("wmbuscrypto: %w", err)
	}
	var out = make([]byte, len(data))
	cipher.NewCTR(block, iv[:]).XORKeyStream(out, data)
	return out, nil
}

// CBCIVFromHeader builds the IV for TPL security mode AES_CBC_IV:
// mfct(2 LE) || id(4 LE) || ver(1) || type(1) || ACC repeated 8 times.
func CBCIVFromHeader(mfctRaw uint16, id [4]byte, ver, typ, acc byte) [16]byte {
	var iv [16]byte
	iv[0] = byte(mfctRaw)
	iv[1] = byte(mfctRaw >> 8)
	copy(iv[2:6], id[:])
	iv[6] = ver
	iv[7] = typ
	for i := 8; i < 16; i++ {
		iv[i] = acc
	}
	return iv
}
