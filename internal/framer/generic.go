package framer

import (
	"sync"

	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

// crcFormat selects which DLL CRC convention a device's raw frames carry.
type crcFormat int

const (
	noCRC crcFormat = iota
	formatA
	formatB
)

// unwrapFunc strips a device's outer encapsulation (SLIP framing, 0xFF 0x03
// prefix, ASCII line prefix, ...) from one detected frame and reports any
// RSSI it carried. The returned slice is the raw wM-Bus frame ready for CRC
// trimming.
type unwrapFunc func(raw []byte) (frame []byte, rssi int)

// genericWMBusFramer is the shared accumulate-detect-trim-emit loop behind
// every raw-binary wM-Bus device framer (im871a, amb8465, rc1180, iu880b,
// rawtty): each device supplies its own unwrap step and CRC convention,
// everything else (buffering, detection, trimming, About construction) is
// shared. Grounded on doismellburning/samoyed's kissserial.go, where the KISS and
// KISS-over-pty variants differ only in their byte-stream framing and share
// one accumulation loop.
type genericWMBusFramer struct {
	mu     sync.Mutex
	device string
	buf    []byte
	crc    crcFormat
	unwrap unwrapFunc
	closed bool

	linkModes linkmode.Set
}

func newGenericWMBusFramer(device string, crc crcFormat, unwrap unwrapFunc) *genericWMBusFramer {
	if unwrap == nil {
		unwrap = func(raw []byte) ([]byte, int) { return raw, 0 }
	}
	return &genericWMBusFramer{device: device, crc: crc, unwrap: unwrap}
}

func (g *genericWMBusFramer) OnBytes(b []byte) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.buf = append(g.buf, b...)

	var events []Event
	for {
		var r = DetectWMBusFrame(g.buf)
		switch r.Status {
		case PartialFrame:
			return events
		case ErrorInFrame:
			g.buf = g.buf[r.PayloadOffset:]
			if len(g.buf) == 0 {
				return events
			}
			continue
		case FullFrame:
			var noise = r.PayloadOffset - 1
			var raw = append([]byte{}, g.buf[noise:r.FrameLength]...)
			g.buf = g.buf[r.FrameLength:]

			var frame, rssi = g.unwrap(raw)
			var trimmed, err = trimFrame(g.crc, frame)
			if err != nil {
				continue
			}
			events = append(events, Event{
				About: telegram.About{Device: g.device, RSSI: rssi, FrameType: telegram.WMBus},
				Frame: trimmed,
			})
		}
	}
}

func (g *genericWMBusFramer) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buf = nil
}

func (g *genericWMBusFramer) SetLinkModes(lm linkmode.Set) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.linkModes = lm
	return nil
}

func (g *genericWMBusFramer) CanSetLinkModes(linkmode.Set) bool { return true }

func (g *genericWMBusFramer) CheckStatus() error { return nil }

func (g *genericWMBusFramer) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.buf = nil
	return nil
}

func (g *genericWMBusFramer) SendTelegram(StartsWith, []byte) error {
	return ErrSendNotSupported
}
