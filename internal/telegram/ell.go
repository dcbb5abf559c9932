package telegram

import (
	"fmt"

	"github.com/wmbus-tools/wmbusgw/internal/crc"
	"github.com/wmbus-tools/wmbusgw/internal/mfct"
	"github.com/wmbus-tools/wmbusgw/internal/wmbuscrypto"
)

const (
	ciELLI   = 0x8C
	ciELLII  = 0x8D
	ciELLIII = 0x8E
	ciELLIV  = 0x8F
	ciELLV   = 0x86
)

func isELLCI(ci byte) bool {
	switch ci {
	case ciELLI, ciELLII, ciELLIII, ciELLIV, ciELLV:
		return true
	}
	return false
}

// parseELL consumes the Extended Link Layer, if present. A CI field not in
// the ELL set means there is no ELL; parseELL is then a no-op.
func parseELL(t *Telegram) error {
	if !t.need(1) {
		return nil
	}
	var ci = t.remaining()[0]
	if !isELLCI(ci) {
		return nil
	}
	if ci == ciELLV {
		return ErrUnsupportedELLVariant
	}

	t.ELL.Present = true
	t.ELL.CI = ci
	t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x ell-ci-field", ci)
	t.Parsed++

	var hasTargetMfctAddress = ci == ciELLIII || ci == ciELLIV
	var hasSessionNumberPLCRC = ci == ciELLII || ci == ciELLIV

	if !t.need(2) {
		return fmt.Errorf("%w: ELL cc/acc", ErrFrameIncomplete)
	}
	t.ELL.CC = t.remaining()[0]
	t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x ell-cc", t.ELL.CC)
	t.Parsed++
	t.ELL.ACC = t.remaining()[0]
	t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x ell-acc", t.ELL.ACC)
	t.Parsed++

	if hasTargetMfctAddress {
		if !t.need(6) {
			return fmt.Errorf("%w: ELL target mfct+address", ErrFrameIncomplete)
		}
		t.ELL.MfctRaw = le16(t.remaining())
		t.ELL.Mfct = mfct.Decode(t.ELL.MfctRaw)
		t.explain(t.Parsed, 2, Protocol, UnderstandingFull, "%02x%02x ell-mfct (%s)", t.Frame[t.Parsed], t.Frame[t.Parsed+1], t.ELL.Mfct)
		t.Parsed += 2

		t.ELL.IDFound = true
		copy(t.ELL.ID[:], t.remaining()[:4])
		var id = idHex(t.ELL.ID)
		t.IDs = append(t.IDs, id)
		t.explain(t.Parsed, 4, Protocol, UnderstandingFull, "%02x%02x%02x%02x ell-id (%s)",
			t.ELL.ID[0], t.ELL.ID[1], t.ELL.ID[2], t.ELL.ID[3], id)
		t.Parsed += 4

		t.ELL.Version = t.remaining()[0]
		t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x ell-version", t.ELL.Version)
		t.Parsed++
		t.ELL.Type = t.remaining()[0]
		t.explain(t.Parsed, 1, Protocol, UnderstandingFull, "%02x ell-type", t.ELL.Type)
		t.Parsed++
	}

	if hasSessionNumberPLCRC {
		if !t.need(4) {
			return fmt.Errorf("%w: ELL session number", ErrFrameIncomplete)
		}
		t.ELL.SNPresent = true
		t.ELL.SN = le32(t.remaining())
		t.ELL.Session = int(t.ELL.SN & 0x0F)
		t.ELL.Time = int((t.ELL.SN >> 4) & 0x1FFFFFF)
		var sec = int((t.ELL.SN >> 29) & 0x7)
		if sec == int(ELLAESCTR) {
			t.ELL.SecMode = ELLAESCTR
		} else {
			t.ELL.SecMode = ELLNoSecurity
		}
		t.explain(t.Parsed, 4, Protocol, UnderstandingFull, "%02x%02x%02x%02x sn (%s)",
			t.Frame[t.Parsed], t.Frame[t.Parsed+1], t.Frame[t.Parsed+2], t.Frame[t.Parsed+3], t.ELL.SecMode)
		t.Parsed += 4

		if t.ELL.SecMode == ELLAESCTR && t.HasKeys && t.Keys.HasConfidentiality {
			var mfctRaw, id, ver, typ = t.DLL.MfctRaw, t.DLL.ID, t.DLL.Version, t.DLL.Type
			if t.ELL.IDFound {
				mfctRaw, id, ver, typ = t.ELL.MfctRaw, t.ELL.ID, t.ELL.Version, t.ELL.Type
			}
			var iv = wmbuscrypto.CBCIVFromHeader(mfctRaw, id, ver, typ, t.ELL.ACC)
			var plain, err = wmbuscrypto.CryptCTR(t.Keys.ConfidentialityKey, iv, t.remaining())
			if err == nil {
				copy(t.Frame[t.Parsed:], plain)
			}
		}

		if !t.need(2) {
			return fmt.Errorf("%w: ELL payload CRC", ErrFrameIncomplete)
		}
		t.ELL.PayloadCRC = le16(t.remaining())
		t.Parsed += 2

		var check = crc.Checksum(t.remaining())
		var ok = t.ELL.PayloadCRC == check
		t.explain(t.Parsed-2, 2, Protocol, UnderstandingFull, "%02x%02x payload crc (calculated %04x %s)",
			t.Frame[t.Parsed-2], t.Frame[t.Parsed-1], check, okString(ok))

		if !ok {
			t.DecryptionFailed = true
			t.explain(t.Parsed, len(t.remaining()), Content, UnderstandingEncrypted, "failed decryption, wrong key?")
			t.Parsed = len(t.Frame)
		}
	}

	return nil
}

func okString(ok bool) string {
	if ok {
		return "OK"
	}
	return "ERROR"
}
