package wmbuscrypto

const (
	kdfDCEncryption = 0x00
	kdfDCMac        = 0x01
)

// DeriveKDF1 implements the EN13757 KDF-1 key derivation: build a 16-byte
// input [DC, counter(4 LE), id(4 LE), 0x07 x 7] and run AES-CMAC with the
// meter's confidentiality key to obtain the ephemeral encryption key
// (DC=0x00) and MAC key (DC=0x01).
func DeriveKDF1(confidentialityKey Key, counter uint32, id [4]byte) (kenc, kmac Key, err error) {
	kenc, err = kdf1(confidentialityKey, kdfDCEncryption, counter, id)
	if err != nil {
		return
	}
	kmac, err = kdf1(confidentialityKey, kdfDCMac, counter, id)
	return
}

func kdf1(key Key, dc byte, counter uint32, id [4]byte) (Key, error) {
	var input [16]byte
	input[0] = dc
	input[1] = byte(counter)
	input[2] = byte(counter >> 8)
	input[3] = byte(counter >> 16)
	input[4] = byte(counter >> 24)
	copy(input[5:9], id[:])
	for i := 9; i < 16; i++ {
		input[i] = 0x07
	}
	var mac, err = CMAC(key, input[:])
	if err != nil {
		return Key{}, err
	}
	return Key(mac), nil
}
