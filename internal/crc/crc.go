// Package crc implements the checksum algorithms used by the wM-Bus and
// M-Bus wire formats: EN13757 CRC16 over wM-Bus frames, and the simple
// additive checksum used by M-Bus long frames.
package crc

// EN13757 CRC16: polynomial 0x3D65, initial value 0x0000, output XOR 0xFFFF,
// computed MSB-first (non-reflected).
const en13757Poly = 0x3D65

// en13757Table is a byte-at-a-time CRC table built for the non-reflected
// 0x3D65 polynomial. Unlike github.com/howeyc/crc16's MakeTable, which only
// supports reflected (LSB-first) polynomials such as the IBM/CCITT families,
// EN13757 is computed MSB-first, so the table is built by hand here.
var en13757Table = buildTable(en13757Poly)

func buildTable(poly uint16) [256]uint16 {
	var table [256]uint16
	for i := 0; i < 256; i++ {
		var crc = uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// Checksum computes the EN13757 CRC16 over data, with the init-0/xorout-0xFFFF
// convention used throughout the wM-Bus wire format (DLL block CRCs, ELL
// payload CRC, compact-frame data CRC).
func Checksum(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc << 8) ^ en13757Table[byte(crc>>8)^b]
	}
	return crc ^ 0xFFFF
}

// Verify reports whether the two trailing bytes of block (big-endian CRC)
// match the EN13757 CRC16 of block[:len(block)-2].
func Verify(block []byte) bool {
	if len(block) < 2 {
		return false
	}
	var payload = block[:len(block)-2]
	var want = uint16(block[len(block)-2])<<8 | uint16(block[len(block)-1])
	return Checksum(payload) == want
}

// Append appends the big-endian EN13757 CRC16 of data to data and returns the
// result.
func Append(data []byte) []byte {
	var c = Checksum(data)
	return append(data, byte(c>>8), byte(c))
}

// MBusChecksum computes the M-Bus long-frame checksum: the arithmetic sum of
// all payload bytes (C, A, CI, user data), modulo 256.
func MBusChecksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return sum
}
