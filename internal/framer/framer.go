// Package framer identifies frame boundaries in streaming device byte data
// (spec §4.1): the WMBus/MBus frame detectors, DLL CRC trimming, and one
// variant per device type. Grounded on doismellburning/samoyed's src/kissserial.go /
// src/kiss.go (a shared KISS-over-serial transport with per-device framing
// variants) for the "shared contract, one file per transport" shape.
package framer

import (
	"errors"
	"fmt"

	"github.com/wmbus-tools/wmbusgw/internal/crc"
	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

// Status is the outcome of one frame-detection pass over an accumulating
// buffer.
type Status int

const (
	PartialFrame Status = iota
	FullFrame
	ErrorInFrame
)

// Result reports a frame detector's findings. PayloadOffset is the offset of
// the first byte after the frame's leading length byte within the scanned
// buffer (after any leading noise; for an MBus long frame, the first byte
// after 0x68 L L 0x68); FrameLength is the total frame size, measured from the
// start of the scanned buffer (so it already accounts for any noise prefix).
type Result struct {
	Status        Status
	PayloadLen    int
	PayloadOffset int
	FrameLength   int
}

// StartsWith selects which framing layer raw bytes handed to SendTelegram
// belong to (spec §4.5 Outbound Queue).
type StartsWith int

const (
	CField StartsWith = iota
	CIField
	ShortFrame
	LongFrame
)

// ErrSendNotSupported is returned by SendTelegram on receive-only framers.
var ErrSendNotSupported = errors.New("framer: send not supported by this device")

// Event is one framed telegram ready for the telegram parser.
type Event struct {
	About telegram.About
	Frame []byte
}

// Framer is the contract every device-specific variant implements.
type Framer interface {
	// OnBytes consumes newly arrived bytes (appending them to any retained
	// partial frame) and returns zero or more framed telegrams. MUST NOT
	// block.
	OnBytes(buf []byte) []Event
	Reset()
	SetLinkModes(lm linkmode.Set) error
	CanSetLinkModes(lm linkmode.Set) bool
	CheckStatus() error
	Close() error
	SendTelegram(startsWith StartsWith, content []byte) error
}

// isValidWMBusCField mirrors the real wmbus.cc isValidWMBusCField: 0x44 is
// the common case (SND_NR), 0x46 is seen from ei6500 meters; all other
// values are currently treated as out of sync.
func isValidWMBusCField(c byte) bool {
	return c == 0x44 || c == 0x46
}

// DetectWMBusFrame implements spec §4.1's WMBus frame detector, grounded
// directly on wmbus.cc's checkWMBusFrame: fast path at offset 0, falling
// back to a forward scan for a plausible (length, C-field) pair when the
// leading bytes are out of sync, clearing the buffer (ErrorInFrame with
// PayloadOffset == len(buf)) when nothing plausible is found.
func DetectWMBusFrame(buf []byte) Result {
	if len(buf) < 11 {
		return Result{Status: PartialFrame}
	}

	var payloadLen = int(buf[0])
	var offset = 1

	if !isValidWMBusCField(buf[1]) {
		var found = false
		for i := 0; i < len(buf)-2; i++ {
			if !isValidWMBusCField(buf[i+1]) {
				continue
			}
			var remaining = len(buf) - i
			if int(buf[i])+1 == remaining && buf[i+1] == 0x44 {
				payloadLen = int(buf[i])
				offset = i + 1
				found = true
				break
			}
		}
		if !found {
			return Result{Status: ErrorInFrame, PayloadOffset: len(buf)}
		}
	}

	var frameLength = payloadLen + offset
	if len(buf) < frameLength {
		return Result{Status: PartialFrame, FrameLength: frameLength}
	}
	return Result{Status: FullFrame, PayloadOffset: offset, PayloadLen: payloadLen, FrameLength: frameLength}
}

// DetectMBusFrame implements spec §4.1's MBus frame detector: the single
// 0xE5 ack, or the long frame 0x68 L L 0x68 ... CS 0x16 with L validated
// against its own repetition and CS the arithmetic sum of the C/A/CI/data
// bytes.
func DetectMBusFrame(buf []byte) Result {
	if len(buf) == 0 {
		return Result{Status: PartialFrame}
	}
	if buf[0] == 0xE5 {
		return Result{Status: FullFrame, PayloadOffset: 0, PayloadLen: 1, FrameLength: 1}
	}
	if buf[0] != 0x68 {
		return Result{Status: ErrorInFrame, PayloadOffset: len(buf)}
	}
	if len(buf) < 4 {
		return Result{Status: PartialFrame}
	}
	var l1, l2 = int(buf[1]), int(buf[2])
	if buf[3] != 0x68 || l1 != l2 {
		return Result{Status: ErrorInFrame, PayloadOffset: len(buf)}
	}

	var frameLength = 4 + l1 + 2
	if len(buf) < frameLength {
		return Result{Status: PartialFrame, FrameLength: frameLength}
	}
	if buf[frameLength-1] != 0x16 {
		return Result{Status: ErrorInFrame, PayloadOffset: frameLength}
	}
	var cs = crc.MBusChecksum(buf[4 : 4+l1])
	if cs != buf[frameLength-2] {
		return Result{Status: ErrorInFrame, PayloadOffset: frameLength}
	}
	return Result{Status: FullFrame, PayloadOffset: 4, PayloadLen: l1, FrameLength: frameLength}
}

// TrimFormatA validates and strips the per-block EN13757 CRCs of a wM-Bus
// format-A frame, per spec §4.1: the first block is the 10-byte header
// (L,C,M,M,A,A,A,A,V,T), every subsequent block is up to 16 payload bytes
// each followed by its own 2-byte CRC. The returned frame's length byte is
// rewritten to reflect the post-trim size.
func TrimFormatA(frame []byte) ([]byte, error) {
	if len(frame) < 12 {
		return nil, fmt.Errorf("framer: frame-A shorter than header+CRC")
	}
	if !crc.Verify(frame[:12]) {
		return nil, fmt.Errorf("framer: frame-A header CRC mismatch")
	}
	var out = append([]byte{}, frame[:10]...)

	var pos = 12
	for pos < len(frame) {
		var blockLen = 16
		if len(frame)-pos < blockLen+2 {
			blockLen = len(frame) - pos - 2
		}
		if blockLen <= 0 {
			return nil, fmt.Errorf("framer: frame-A trailing bytes too short for a CRC block")
		}
		if !crc.Verify(frame[pos : pos+blockLen+2]) {
			return nil, fmt.Errorf("framer: frame-A block CRC mismatch at offset %d", pos)
		}
		out = append(out, frame[pos:pos+blockLen]...)
		pos += blockLen + 2
	}

	out[0] = byte(len(out) - 1)
	return out, nil
}

// TrimFormatB validates and strips the CRC(s) of a wM-Bus format-B frame,
// per spec §4.1: frames over 128 bytes carry a mid-frame CRC at byte offset
// 126 in addition to the trailing CRC; shorter frames carry only the
// trailing CRC.
func TrimFormatB(frame []byte) ([]byte, error) {
	if len(frame) <= 128 {
		if !crc.Verify(frame) {
			return nil, fmt.Errorf("framer: frame-B CRC mismatch")
		}
		var out = append([]byte{}, frame[:len(frame)-2]...)
		out[0] = byte(len(out) - 1)
		return out, nil
	}

	if !crc.Verify(frame[:128]) {
		return nil, fmt.Errorf("framer: frame-B mid-frame CRC mismatch")
	}
	var tail = frame[128:]
	if !crc.Verify(tail) {
		return nil, fmt.Errorf("framer: frame-B trailing CRC mismatch")
	}

	var out = append([]byte{}, frame[:126]...)
	out = append(out, tail[:len(tail)-2]...)
	out[0] = byte(len(out) - 1)
	return out, nil
}
