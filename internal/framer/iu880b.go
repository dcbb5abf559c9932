package framer

// IU880BFramer decodes the iU880B module's protocol: the same 4-byte
// start/endpoint/control/length envelope as IM871A, with a trailing RSSI
// byte.
type IU880BFramer struct {
	*envelopeFramer
}

// NewIU880B builds an iU880B framer.
func NewIU880B(device string) *IU880BFramer {
	return &IU880BFramer{envelopeFramer: newEnvelopeFramer(device, 4, 3, true, formatA)}
}
