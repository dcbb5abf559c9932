package framer

import (
	"encoding/hex"
	"strings"
	"sync"

	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

// CULFramer decodes the CUL USB stick's ASCII line protocol: lines of the
// form "b<hex>\r\n", one wM-Bus frame (already DLL-CRC-trimmed by the
// firmware) per line.
type CULFramer struct {
	mu        sync.Mutex
	device    string
	line      []byte
	linkModes linkmode.Set
}

// NewCUL builds a CUL framer.
func NewCUL(device string) *CULFramer {
	return &CULFramer{device: device}
}

func (c *CULFramer) OnBytes(b []byte) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.line = append(c.line, b...)

	var events []Event
	for {
		var nl = indexByte(c.line, '\n')
		if nl < 0 {
			return events
		}
		var raw = strings.TrimRight(string(c.line[:nl]), "\r\n")
		c.line = c.line[nl+1:]

		if len(raw) == 0 || raw[0] != 'b' {
			continue
		}
		var data, err = hex.DecodeString(raw[1:])
		if err != nil || len(data) == 0 {
			continue
		}
		events = append(events, Event{
			About: telegram.About{Device: c.device, FrameType: telegram.WMBus},
			Frame: data,
		})
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func (c *CULFramer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line = nil
}

func (c *CULFramer) SetLinkModes(lm linkmode.Set) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.linkModes = lm
	return nil
}

func (c *CULFramer) CanSetLinkModes(linkmode.Set) bool { return true }
func (c *CULFramer) CheckStatus() error                { return nil }

func (c *CULFramer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line = nil
	return nil
}

func (c *CULFramer) SendTelegram(StartsWith, []byte) error {
	return ErrSendNotSupported
}
