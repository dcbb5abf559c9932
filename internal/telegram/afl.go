package telegram

import "fmt"

const ciAFL = 0x90

const (
	aflFCHasKeyInfo = 0x0200
	aflFCHasMAC     = 0x0400
	aflFCHasCounter = 0x0800
	aflFCHasControl = 0x2000
)

// aflAuthLength maps the low nibble of the AFL MCL byte to the MAC length
// in bytes. Only entries producing one of the permitted lengths
// (2, 4, 8, 12, 16) are meaningful; everything else is reserved.
var aflAuthLength = map[byte]int{
	0x2: 2,
	0x4: 4,
	0x6: 8,
	0x8: 16,
	0xA: 12,
}

// parseAFL consumes the Authentication and Fragmentation Sublayer, if
// present: len, FC(2), optional MCL, optional KI(2), optional counter(4 LE),
// optional MAC (length from the MCL auth-type nibble).
func parseAFL(t *Telegram) error {
	if !t.need(1) {
		return nil
	}
	var ci = t.remaining()[0]
	if ci != ciAFL {
		return nil
	}
	t.AFL.Present = true
	t.AFL.CI = ci
	t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x afl-ci-field", ci)
	t.Parsed++

	if !t.need(1) {
		return fmt.Errorf("%w: AFL len", ErrFrameIncomplete)
	}
	t.AFL.Len = t.remaining()[0]
	t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x afl-len (%d)", t.AFL.Len, t.AFL.Len)
	t.Parsed++

	if !t.need(2) {
		return fmt.Errorf("%w: AFL fc", ErrFrameIncomplete)
	}
	t.AFL.FC = le16(t.remaining())
	t.explain(t.Parsed, 2, Protocol, UnderstandingFull, "%02x%02x afl-fc", t.Frame[t.Parsed], t.Frame[t.Parsed+1])
	t.Parsed += 2

	t.AFL.HasControl = t.AFL.FC&aflFCHasControl != 0
	t.AFL.HasKeyInfo = t.AFL.FC&aflFCHasKeyInfo != 0
	t.AFL.HasCounter = t.AFL.FC&aflFCHasCounter != 0
	var hasMAC = t.AFL.FC&aflFCHasMAC != 0

	if t.AFL.HasControl {
		if !t.need(1) {
			return fmt.Errorf("%w: AFL mcl", ErrFrameIncomplete)
		}
		t.AFL.MCL = t.remaining()[0]
		t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x afl-mcl", t.AFL.MCL)
		t.Parsed++
	}

	if t.AFL.HasKeyInfo {
		if !t.need(2) {
			return fmt.Errorf("%w: AFL ki", ErrFrameIncomplete)
		}
		t.AFL.KI = le16(t.remaining())
		t.explain(t.Parsed, 2, Protocol, UnderstandingFull, "%02x%02x afl-ki", t.Frame[t.Parsed], t.Frame[t.Parsed+1])
		t.Parsed += 2
	}

	if t.AFL.HasCounter {
		if !t.need(4) {
			return fmt.Errorf("%w: AFL counter", ErrFrameIncomplete)
		}
		t.AFL.Counter = le32(t.remaining())
		t.explain(t.Parsed, 4, Protocol, UnderstandingFull, "%02x%02x%02x%02x afl-counter (%d)",
			t.Frame[t.Parsed], t.Frame[t.Parsed+1], t.Frame[t.Parsed+2], t.Frame[t.Parsed+3], t.AFL.Counter)
		t.Parsed += 4
	}

	if hasMAC {
		var at = t.AFL.MCL & 0x0F
		var length, ok = aflAuthLength[at]
		if !ok {
			return ErrBadMacLength
		}
		if !t.need(length) {
			return fmt.Errorf("%w: AFL mac", ErrFrameIncomplete)
		}
		t.AFL.MAC = append([]byte{}, t.remaining()[:length]...)
		t.explain(t.Parsed, length, Protocol, UnderstandingFull, "afl-mac (%d bytes)", length)
		t.Parsed += length
		t.AFL.MustCheckMAC = true
		t.MustCheckMAC = true
	}

	return nil
}
