package telegram

import (
	"github.com/wmbus-tools/wmbusgw/internal/crc"
)

// Parse runs the full layered decode over frame (already framed and
// CRC-trimmed by the caller) and returns a Telegram populated as far as
// parsing got. A non-nil error is always wrapped around one of the sentinel
// errors in errors.go; the Telegram is still usable for whatever layers did
// complete (errors.Is lets a caller distinguish "need more bytes" from
// "malformed" from "needs a format we haven't learned yet").
func Parse(about About, frame []byte, keys Keystore, formats FormatCache) (*Telegram, error) {
	var t = &Telegram{About: about, Frame: frame}
	if formats == nil {
		formats = NoFormatCache{}
	}

	if err := parseDLL(t); err != nil {
		return t, err
	}

	t.resolveKeys(keys, t.DLL.IDHex)

	if err := parseELL(t); err != nil {
		return t, err
	}
	if err := parseNWL(t); err != nil {
		return t, err
	}
	if err := parseAFL(t); err != nil {
		return t, err
	}

	if err := parseTPL(t, formats); err != nil {
		return t, err
	}

	t.learnCompactFormat(formats)

	return t, nil
}

// resolveKeys looks up and caches the confidentiality key material for id.
// Called again after the TPL long header names a different id than the DLL
// did (e.g. a relayed frame), so decryption still uses the right key.
func (t *Telegram) resolveKeys(keys Keystore, id string) {
	if keys == nil || id == "" {
		return
	}
	var k, ok = keys.Lookup(id)
	if ok {
		t.Keys = k
		t.HasKeys = true
	}
}

// learnCompactFormat caches the DIF/VIF/VIFE template of a successfully
// parsed full frame, keyed by (id, format_signature), so a later compact
// frame (TPL CI 0x79) from the same meter can be reconstructed.
func (t *Telegram) learnCompactFormat(formats FormatCache) {
	if formats == nil || !t.TPL.Present || t.TPL.CI == ciTPL79 || t.DecryptionFailed {
		return
	}
	if len(t.DV.Entries) == 0 {
		return
	}
	var id = t.DLL.IDHex
	if t.TPL.IDFound {
		id = idHex(t.TPL.ID)
	}
	var formatBytes = t.DV.FormatBytes()
	var signature = crc.Checksum(formatBytes)
	formats.Store(id, signature, formatBytes)
}
