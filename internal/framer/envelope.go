package framer

import (
	"sync"

	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

// envelopeFramer is the shared loop behind the length-prefixed HCI-style
// dongle protocols (IM871A, AMB8465, RC1180, IU880B): a fixed-size header
// ending in a one-byte payload length, followed by that many payload bytes,
// the last of which is optionally a signed RSSI byte (counted in the length).
// Each device differs only in header size/contents and whether that RSSI
// byte is present.
type envelopeFramer struct {
	mu     sync.Mutex
	device string
	buf    []byte

	headerLen    int
	lengthOffset int // offset within the header holding the payload length
	trailingRSSI bool
	crc          crcFormat

	linkModes linkmode.Set
}

func newEnvelopeFramer(device string, headerLen, lengthOffset int, trailingRSSI bool, format crcFormat) *envelopeFramer {
	return &envelopeFramer{
		device:       device,
		headerLen:    headerLen,
		lengthOffset: lengthOffset,
		trailingRSSI: trailingRSSI,
		crc:          format,
	}
}

func (f *envelopeFramer) OnBytes(b []byte) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buf = append(f.buf, b...)

	var events []Event
	for {
		if len(f.buf) < f.headerLen {
			return events
		}
		var payloadLen = int(f.buf[f.lengthOffset])
		var total = f.headerLen + payloadLen
		if len(f.buf) < total {
			return events
		}

		var payload = append([]byte{}, f.buf[f.headerLen:total]...)
		f.buf = f.buf[total:]

		var rssi int
		if f.trailingRSSI && len(payload) > 0 {
			rssi = int(int8(payload[len(payload)-1]))
			payload = payload[:len(payload)-1]
		}

		var trimmed, err = trimFrame(f.crc, payload)
		if err != nil {
			continue
		}
		events = append(events, Event{
			About: telegram.About{Device: f.device, RSSI: rssi, FrameType: telegram.WMBus},
			Frame: trimmed,
		})
	}
}

func trimFrame(format crcFormat, frame []byte) ([]byte, error) {
	switch format {
	case formatA:
		return TrimFormatA(frame)
	case formatB:
		return TrimFormatB(frame)
	default:
		return frame, nil
	}
}

func (f *envelopeFramer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = nil
}

func (f *envelopeFramer) SetLinkModes(lm linkmode.Set) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkModes = lm
	return nil
}

func (f *envelopeFramer) CanSetLinkModes(linkmode.Set) bool { return true }
func (f *envelopeFramer) CheckStatus() error                { return nil }

func (f *envelopeFramer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = nil
	return nil
}

func (f *envelopeFramer) SendTelegram(StartsWith, []byte) error {
	return ErrSendNotSupported
}
