package telegram

import (
	"fmt"

	"github.com/wmbus-tools/wmbusgw/internal/mfct"
)

// parseDLL consumes the Data Link Layer: length(1), C(1), mfct(2 LE),
// addr(4), version(1), type(1). Appends the DLL id string to t.IDs.
func parseDLL(t *Telegram) error {
	if !t.need(1) {
		return fmt.Errorf("%w: DLL length byte", ErrFrameIncomplete)
	}
	var length = t.remaining()[0]
	if !t.need(int(length)) {
		return fmt.Errorf("%w: DLL declares %d bytes, frame has %d", ErrFrameIncomplete, length, len(t.Frame)-t.Parsed)
	}
	t.DLL.Length = length
	t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x length (%d bytes)", length, length)
	t.Parsed++

	if !t.need(1) {
		return fmt.Errorf("%w: DLL C field", ErrFrameIncomplete)
	}
	t.DLL.C = t.remaining()[0]
	t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x dll-c", t.DLL.C)
	t.Parsed++

	if !t.need(2) {
		return fmt.Errorf("%w: DLL mfct", ErrFrameIncomplete)
	}
	t.DLL.MfctRaw = le16(t.remaining())
	t.DLL.Mfct = mfct.Decode(t.DLL.MfctRaw)
	t.explain(t.Parsed, 2, Protocol, UnderstandingFull, "%02x%02x dll-mfct (%s)", t.Frame[t.Parsed], t.Frame[t.Parsed+1], t.DLL.Mfct)
	t.Parsed += 2

	if !t.need(4) {
		return fmt.Errorf("%w: DLL address", ErrFrameIncomplete)
	}
	copy(t.DLL.ID[:], t.remaining()[:4])
	t.DLL.IDHex = idHex(t.DLL.ID)
	t.IDs = append(t.IDs, t.DLL.IDHex)
	t.explain(t.Parsed, 4, Protocol, UnderstandingFull, "%02x%02x%02x%02x dll-id (%s)",
		t.DLL.ID[0], t.DLL.ID[1], t.DLL.ID[2], t.DLL.ID[3], t.DLL.IDHex)
	t.Parsed += 4

	if !t.need(2) {
		return fmt.Errorf("%w: DLL version/type", ErrFrameIncomplete)
	}
	t.DLL.Version = t.remaining()[0]
	t.DLL.Type = t.remaining()[1]
	t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x dll-version", t.DLL.Version)
	t.explain(t.Parsed+1, 1, Protocol, UnderstandingFull, "%02x dll-type", t.DLL.Type)
	t.Parsed += 2

	return nil
}
