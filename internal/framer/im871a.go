package framer

// IM871AFramer decodes the IM871A USB dongle's HCI protocol: a 4-byte
// header (start byte 0xA5, endpoint id, control, payload length) followed
// by that many payload bytes; the last payload byte is a signed RSSI
// reading appended by the dongle's RX_DATA message.
type IM871AFramer struct {
	*envelopeFramer
}

// NewIM871A builds an IM871A framer; device is the bus alias used in emitted
// About records.
func NewIM871A(device string) *IM871AFramer {
	return &IM871AFramer{envelopeFramer: newEnvelopeFramer(device, 4, 3, true, formatA)}
}
