package framer

import (
	"encoding/hex"
	"strconv"
	"strings"
	"sync"

	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

// RTLWMBusFramer decodes rtl_wmbus's stdout line protocol (spec §6.2):
// semicolon-separated text lines of the form "T1;...;rssi=-61;<hex>\n" (or
// "C1;..."), the trailing field always the hex-encoded, already DLL-CRC-free
// raw frame, with RSSI carried in one of the middle columns when the
// subprocess was started with -R.
type RTLWMBusFramer struct {
	mu     sync.Mutex
	device string
	line   []byte
}

// NewRTLWMBus builds an rtl_wmbus line-protocol framer.
func NewRTLWMBus(device string) *RTLWMBusFramer {
	return &RTLWMBusFramer{device: device}
}

func (r *RTLWMBusFramer) OnBytes(b []byte) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.line = append(r.line, b...)

	var events []Event
	for {
		var nl = indexByte(r.line, '\n')
		if nl < 0 {
			return events
		}
		var raw = strings.TrimRight(string(r.line[:nl]), "\r\n")
		r.line = r.line[nl+1:]

		var ev, ok = r.parseLine(raw)
		if ok {
			events = append(events, ev)
		}
	}
}

func (r *RTLWMBusFramer) parseLine(raw string) (Event, bool) {
	var cols = strings.Split(raw, ";")
	if len(cols) == 0 {
		return Event{}, false
	}

	var hexCol = strings.TrimSpace(cols[len(cols)-1])
	var data, err = hex.DecodeString(hexCol)
	if err != nil || len(data) == 0 {
		return Event{}, false
	}

	var rssi int
	for _, col := range cols[:len(cols)-1] {
		col = strings.TrimSpace(col)
		var lower = strings.ToLower(col)
		if !strings.HasPrefix(lower, "rssi=") {
			continue
		}
		if v, perr := strconv.Atoi(col[len("rssi="):]); perr == nil {
			rssi = v
		}
	}

	return Event{
		About: telegram.About{Device: r.device, RSSI: rssi, FrameType: telegram.WMBus},
		Frame: data,
	}, true
}

func (r *RTLWMBusFramer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.line = nil
}

func (r *RTLWMBusFramer) SetLinkModes(linkmode.Set) error { return nil }
func (r *RTLWMBusFramer) CanSetLinkModes(linkmode.Set) bool { return false }
func (r *RTLWMBusFramer) CheckStatus() error                { return nil }

func (r *RTLWMBusFramer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.line = nil
	return nil
}

func (r *RTLWMBusFramer) SendTelegram(StartsWith, []byte) error {
	return ErrSendNotSupported
}
