// Package telegram implements the layered wM-Bus/M-Bus telegram decoder:
// DLL -> ELL -> NWL -> AFL -> TPL -> DV data records. Parse runs once over
// an already frame-trimmed byte slice, decrypting encrypted spans of it in
// place (the caller's slice is modified), and returns either a fully or
// partially populated Telegram, never an exception: structural failures
// come back as a wrapped sentinel error, while a payload left encrypted is
// reported by Telegram.DecryptionFailed with a nil error.
package telegram

import (
	"fmt"

	"github.com/wmbus-tools/wmbusgw/internal/dvrecord"
	"github.com/wmbus-tools/wmbusgw/internal/wmbuscrypto"
)

// FrameType names the physical transport the raw bytes were captured from.
type FrameType int

const (
	WMBus FrameType = iota
	MBus
	HAN
)

func (f FrameType) String() string {
	switch f {
	case WMBus:
		return "wmbus"
	case MBus:
		return "mbus"
	case HAN:
		return "han"
	default:
		return "unknown"
	}
}

// About carries the framer-supplied metadata accompanying one raw frame.
type About struct {
	Device    string
	RSSI      int
	FrameType FrameType
}

// Kind classifies an Explanation span as describing wire protocol structure
// or meter content (the decoded measurement payload).
type Kind int

const (
	Protocol Kind = iota
	Content
)

// Understanding records how completely a span was decoded.
type Understanding int

const (
	UnderstandingNone Understanding = iota
	UnderstandingEncrypted
	UnderstandingCompressed
	UnderstandingPartial
	UnderstandingFull
)

func (u Understanding) String() string {
	switch u {
	case UnderstandingNone:
		return "none"
	case UnderstandingEncrypted:
		return "encrypted"
	case UnderstandingCompressed:
		return "compressed"
	case UnderstandingPartial:
		return "partial"
	case UnderstandingFull:
		return "full"
	default:
		return "unknown"
	}
}

// Explanation records one consumed span of the frame for the analysis
// renderer: its offset and length, a human description, and how it was
// understood.
type Explanation struct {
	Offset        int
	Length        int
	Text          string
	Kind          Kind
	Understanding Understanding
}

// ELLSecurityMode is the 3-bit security-mode field packed into the ELL
// session number.
type ELLSecurityMode int

const (
	ELLNoSecurity ELLSecurityMode = iota
	ELLAESCTR
)

func (m ELLSecurityMode) String() string {
	if m == ELLAESCTR {
		return "AES_CTR"
	}
	return "none"
}

// TPLSecurityMode is the 5-bit security-mode field packed into the TPL CFG
// word.
type TPLSecurityMode int

const (
	TPLNoSecurity TPLSecurityMode = iota
	TPLAESCTR
	tplSecurityReserved2
	tplSecurityReserved3
	tplSecurityReserved4
	TPLAESCBCIV // mode 5
	tplSecurityReserved6
	TPLAESCBCNoIV // mode 7
	TPLSpecific16_31
)

func (m TPLSecurityMode) String() string {
	switch m {
	case TPLNoSecurity:
		return "none"
	case TPLAESCTR:
		return "AES_CTR"
	case TPLAESCBCIV:
		return "AES_CBC_IV"
	case TPLAESCBCNoIV:
		return "AES_CBC_NO_IV"
	case TPLSpecific16_31:
		return "SPECIFIC_16_31"
	default:
		return "reserved"
	}
}

// DLL holds the parsed Data Link Layer fields.
type DLL struct {
	Length  byte
	C       byte
	MfctRaw uint16
	Mfct    string
	ID      [4]byte
	IDHex   string
	Version byte
	Type    byte
}

// ELL holds the parsed Extended Link Layer fields, present only if a layer
// CI matched.
type ELL struct {
	Present    bool
	CI         byte
	CC         byte
	ACC        byte
	MfctRaw    uint16
	Mfct       string
	ID         [4]byte
	IDFound    bool
	Version    byte
	Type       byte
	SN         uint32
	SNPresent  bool
	Session    int
	Time       int
	SecMode    ELLSecurityMode
	PayloadCRC uint16
}

// NWL holds the parsed Network Layer fields.
type NWL struct {
	Present bool
	CI      byte
	Info    byte
}

// AFL holds the parsed Authentication and Fragmentation Sublayer fields.
type AFL struct {
	Present      bool
	CI           byte
	Len          byte
	FC           uint16
	MCL          byte
	HasControl   bool
	KI           uint16
	HasKeyInfo   bool
	Counter      uint32
	HasCounter   bool
	MAC          []byte
	MustCheckMAC bool
}

// TPL holds the parsed Transport Layer fields.
type TPL struct {
	Present        bool
	CI             byte
	Start          int // offset of the TPL CI byte within frame
	ACC            byte
	STS            byte
	CFG            uint16
	CFGExt         byte
	HasCFGExt      bool
	SecMode        TPLSecurityMode
	NumEncrBlocks  int
	ID             [4]byte
	IDFound        bool
	MfctRaw        uint16
	Mfct           string
	Version        byte
	Type           byte
	KDFSelection    int
	GeneratedKenc   wmbuscrypto.Key
	GeneratedKmac   wmbuscrypto.Key
	HasGeneratedKey bool
}

// Telegram is the central entity populated incrementally by Parse.
type Telegram struct {
	About  About
	Frame  []byte // raw bytes, post-CRC-trim; decrypted spans are overwritten with plaintext
	Parsed int    // bytes consumed so far

	Explanations []Explanation

	DLL DLL
	ELL ELL
	NWL NWL
	AFL AFL
	TPL TPL

	TPLSecMode TPLSecurityMode // mirror of TPL.SecMode, kept per field table naming

	IDs []string

	HeaderSize int
	SuffixSize int

	DV dvrecord.Result

	FormatSignature uint16

	Keys             MeterKeys
	HasKeys          bool
	DecryptionFailed bool
	MustCheckMAC     bool
	TriggeredWarning bool
}

func (t *Telegram) explain(offset, length int, kind Kind, understanding Understanding, format string, args ...interface{}) {
	t.Explanations = append(t.Explanations, Explanation{
		Offset:        offset,
		Length:        length,
		Text:          fmt.Sprintf(format, args...),
		Kind:          kind,
		Understanding: understanding,
	})
}

// remaining returns the unconsumed tail of the frame.
func (t *Telegram) remaining() []byte {
	return t.Frame[t.Parsed:]
}

// need reports whether at least n bytes remain unconsumed.
func (t *Telegram) need(n int) bool {
	return len(t.Frame)-t.Parsed >= n
}
