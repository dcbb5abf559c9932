package framer

import (
	"fmt"
	"sync"

	"github.com/wmbus-tools/wmbusgw/internal/crc"
	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

// MBusMasterFramer decodes a wired M-Bus bus: single-byte 0xE5 acks and long
// frames (0x68 L L 0x68 ... CS 0x16), per spec §4.1's MBus detector. Unlike
// the wM-Bus device framers this is a master, not a passive listener, so it
// also implements SendTelegram to issue the request-side of the bus's
// master/slave exchange.
type MBusMasterFramer struct {
	mu     sync.Mutex
	device string
	buf    []byte
	send   func([]byte) error

	linkModes linkmode.Set
}

// NewMBusMaster builds an M-Bus master framer. send transmits raw bytes on
// the underlying serial connection (normally serialio.Port.Write).
func NewMBusMaster(device string, send func([]byte) error) *MBusMasterFramer {
	return &MBusMasterFramer{device: device, send: send}
}

func (m *MBusMasterFramer) OnBytes(b []byte) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf = append(m.buf, b...)

	var events []Event
	for {
		var r = DetectMBusFrame(m.buf)
		switch r.Status {
		case PartialFrame:
			return events
		case ErrorInFrame:
			if r.PayloadOffset >= len(m.buf) {
				m.buf = nil
			} else {
				m.buf = m.buf[1:]
			}
			if len(m.buf) == 0 {
				return events
			}
			continue
		case FullFrame:
			var frame = append([]byte{}, m.buf[:r.FrameLength]...)
			m.buf = m.buf[r.FrameLength:]
			if frame[0] == 0xE5 {
				continue
			}
			var payload = append([]byte{}, frame[4:4+r.PayloadLen]...)
			events = append(events, Event{
				About: telegram.About{Device: m.device, FrameType: telegram.MBus},
				Frame: payload,
			})
		}
	}
}

func (m *MBusMasterFramer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = nil
}

func (m *MBusMasterFramer) SetLinkModes(lm linkmode.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkModes = lm
	return nil
}

func (m *MBusMasterFramer) CanSetLinkModes(linkmode.Set) bool { return false }
func (m *MBusMasterFramer) CheckStatus() error                { return nil }

func (m *MBusMasterFramer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = nil
	return nil
}

// SendTelegram issues a master-side request. ShortFrame builds the 5-byte
// 0x10 C A CS 0x16 short frame (e.g. REQ_UD2); LongFrame wraps content as a
// 0x68 L L 0x68 ... CS 0x16 long frame. CField/CIField are wM-Bus-only and
// unsupported on a wired bus.
func (m *MBusMasterFramer) SendTelegram(startsWith StartsWith, content []byte) error {
	if m.send == nil {
		return ErrSendNotSupported
	}
	switch startsWith {
	case ShortFrame:
		if len(content) != 2 {
			return fmt.Errorf("framer: mbus short frame needs exactly C,A bytes, got %d", len(content))
		}
		var cs = crc.MBusChecksum(content)
		return m.send([]byte{0x10, content[0], content[1], cs, 0x16})
	case LongFrame:
		var l = byte(len(content))
		var cs = crc.MBusChecksum(content)
		var out = []byte{0x68, l, l, 0x68}
		out = append(out, content...)
		out = append(out, cs, 0x16)
		return m.send(out)
	default:
		return ErrSendNotSupported
	}
}
