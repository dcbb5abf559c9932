package wmbuscrypto

import (
	"crypto/aes"
	"crypto/subtle"
)

// rfc4493Const is the constant used to derive the CMAC subkeys (RFC 4493 §2.3).
const rfc4493Const = 0x87

// CMAC computes AES-128-CMAC (RFC 4493) of msg under key, hand-rolled atop
// stdlib crypto/aes since no dependency in the module graph implements
// AES-CMAC. Used by KDF-1 and the AFL MAC check.
func CMAC(key Key, msg []byte) ([16]byte, error) {
	var block, err = aes.NewCipher(key[:])
	if err != nil {
		return [16]byte{}, err
	}

	var k1, k2 = subkeys(block)

	var n = (len(msg) + 15) / 16
	var lastBlockComplete = len(msg) != 0 && len(msg)%16 == 0
	if n == 0 {
		n = 1
		lastBlockComplete = false
	}

	var mLast [16]byte
	if lastBlockComplete {
		copy(mLast[:], msg[(n-1)*16:n*16])
		xorInto(&mLast, &k1)
	} else {
		var tail = msg[(n-1)*16:]
		copy(mLast[:], tail)
		mLast[len(tail)] = 0x80 // padding per RFC 4493 §2.4
		xorInto(&mLast, &k2)
	}

	var x [16]byte
	for i := 0; i < n-1; i++ {
		var y [16]byte
		copy(y[:], msg[i*16:(i+1)*16])
		xorInto(&y, &x)
		block.Encrypt(x[:], y[:])
	}
	var y = mLast
	xorInto(&y, &x)
	block.Encrypt(x[:], y[:])

	return x, nil
}

// VerifyMAC compares a received MAC (possibly truncated per the AFL
// authentication-type table) against the truncated CMAC of msg, in constant
// time.
func VerifyMAC(key Key, msg []byte, receivedMAC []byte) (bool, error) {
	var full, err = CMAC(key, msg)
	if err != nil {
		return false, err
	}
	if len(receivedMAC) > 16 {
		return false, nil
	}
	return subtle.ConstantTimeCompare(full[:len(receivedMAC)], receivedMAC) == 1, nil
}

func subkeys(block interface{ Encrypt(dst, src []byte) }) (k1, k2 [16]byte) {
	var zero, l [16]byte
	block.Encrypt(l[:], zero[:])
	k1 = shiftLeftXorConst(l)
	k2 = shiftLeftXorConst(k1)
	return k1, k2
}

func shiftLeftXorConst(in [16]byte) [16]byte {
	var out [16]byte
	var carry byte
	for i := 15; i >= 0; i-- {
		out[i] = (in[i] << 1) | carry
		carry = in[i] >> 7
	}
	if carry != 0 {
		out[15] ^= rfc4493Const
	}
	return out
}

func xorInto(dst *[16]byte, src *[16]byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}
