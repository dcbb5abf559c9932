// Package dvrecord implements the DIF/VIF/VIFE data-record parser: it walks
// a TPL payload after decryption and produces one DVEntry per data record.
package dvrecord

// MeasurementType is the function field carried in DIF bits 4-5.
type MeasurementType int

const (
	Instantaneous MeasurementType = iota
	Max
	Min
	AtError
)

func (m MeasurementType) String() string {
	switch m {
	case Instantaneous:
		return "instantaneous"
	case Max:
		return "max"
	case Min:
		return "min"
	case AtError:
		return "error"
	default:
		return "unknown"
	}
}

// dataLength returns the number of data bytes implied by a DIF low nibble:
// 0=0, 1-4=1-4, 5=4 (float), 6=6, 7=8, 9-C=BCD of 1-4 bytes, D=variable
// length (length prefixed), E=6 (BCD), F=special. Nibble 8 ("selection for
// readout") carries no data, per EN13757-3.
func dataLength(nibble byte) (length int, variableLength bool, ok bool) {
	switch nibble {
	case 0x0:
		return 0, false, true
	case 0x1, 0x2, 0x3, 0x4:
		return int(nibble), false, true
	case 0x5:
		return 4, false, true
	case 0x6:
		return 6, false, true
	case 0x7:
		return 8, false, true
	case 0x8:
		return 0, false, true
	case 0x9, 0xA, 0xB, 0xC:
		return int(nibble - 0x9 + 1), false, true
	case 0xD:
		return 0, true, true
	case 0xE:
		return 6, false, true
	case 0xF:
		return 0, false, false // manufacturer-specific tail, caller stops
	default:
		return 0, false, false
	}
}

// IsBCD reports whether a DIF low nibble denotes a BCD-encoded value
// (9-C BCD 1-4 bytes, or E BCD 6 bytes).
func IsBCD(nibble byte) bool {
	return (nibble >= 0x9 && nibble <= 0xC) || nibble == 0xE
}

// DIF holds the decoded fields of one Data Information Field plus any DIFEs.
type DIF struct {
	Raw             byte
	StorageNrLSB    int
	MeasurementType MeasurementType
	Extension       bool
	StorageNr       uint64
	Tariff          int
	SubUnit         int
}

// ParseDIF decodes a single DIF byte (bit7 = extension, bits4-5 = function,
// bit6 = storage-nr LSB).
func ParseDIF(b byte) DIF {
	return DIF{
		Raw:             b,
		StorageNrLSB:    int((b >> 6) & 0x1),
		MeasurementType: MeasurementType((b >> 4) & 0x3),
		Extension:       b&0x80 != 0,
	}
}

// ApplyDIFE folds one DIFE byte's storage/tariff/subunit bits into d,
// following the EN13757-3 DIFE layout: bit7 ext, bit6 subunit, bits5-4
// tariff, bits3-0 storage-nr continuation.
func (d *DIF) ApplyDIFE(b byte, shift uint) {
	d.StorageNr |= uint64(b&0x0F) << shift
	d.Tariff |= int((b >> 4) & 0x3)
	d.SubUnit |= int((b >> 6) & 0x1)
}
