package framer

// RawTTYFramer treats the incoming byte stream as already-unwrapped wM-Bus
// frames with no dongle envelope: it applies the WMBus length/C-field
// detector directly to the raw stream, for SDR setups that emit bare
// telegrams over a tty.
type RawTTYFramer struct {
	*genericWMBusFramer
}

// NewRawTTY builds a RawTTY framer. crcPresent selects whether the frames
// still carry DLL format-A CRCs to be trimmed.
func NewRawTTY(device string, crcPresent bool) *RawTTYFramer {
	var format = noCRC
	if crcPresent {
		format = formatA
	}
	return &RawTTYFramer{genericWMBusFramer: newGenericWMBusFramer(device, format, nil)}
}
