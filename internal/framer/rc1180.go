package framer

// RC1180Framer decodes the Radiocrafts RC1180 module's protocol: a one-byte
// payload length followed by that many payload bytes, no trailing RSSI.
type RC1180Framer struct {
	*envelopeFramer
}

// NewRC1180 builds an RC1180 framer.
func NewRC1180(device string) *RC1180Framer {
	return &RC1180Framer{envelopeFramer: newEnvelopeFramer(device, 1, 0, false, formatA)}
}
