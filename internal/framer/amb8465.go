package framer

// AMB8465Framer decodes the Amber Wireless AMB8465 module's protocol: a
// 0xFF 0x03 prefix followed by a one-byte payload length and that many
// payload bytes, the last of which is an RSSI byte.
type AMB8465Framer struct {
	*envelopeFramer
}

// NewAMB8465 builds an AMB8465 framer.
func NewAMB8465(device string) *AMB8465Framer {
	return &AMB8465Framer{envelopeFramer: newEnvelopeFramer(device, 3, 2, true, formatA)}
}
