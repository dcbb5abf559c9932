package telegram

import "fmt"

// idHex renders a 4-byte little-endian wire address as the big-endian hex
// id string meter drivers key off, e.g. bytes [0x78,0x56,0x34,0x12] -> "12345678".
func idHex(addr [4]byte) string {
	return fmt.Sprintf("%02x%02x%02x%02x", addr[3], addr[2], addr[1], addr[0])
}

func le16(b []byte) uint16 {
	return uint16(b[1])<<8 | uint16(b[0])
}

func le32(b []byte) uint32 {
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}
