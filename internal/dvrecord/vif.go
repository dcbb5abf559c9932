package dvrecord

import "fmt"

// Resolved describes the semantic meaning of a VIF (+ VIFEs): a stable key
// for disambiguation, a human unit, and a base-10 scale factor to multiply
// the raw integer value by to get the value in Unit.
type Resolved struct {
	Key   string
	Unit  string
	Scale float64
}

// VIF codes below are the low 7 bits (extension-bit stripped) of the wire
// byte, so e.g. a wire VIF of 0xFD (0x7D with the extension bit set) or
// plain 0x7D both compare equal to vifExtensionFD.
const (
	vifExtensionFD = 0x7D // "0xFD/0x7D" extension table
	vifExtensionFB = 0x7B // "0x7B/0xFB" extension table
	vifManufSpec   = 0x7F // manufacturer-specific, Understanding::NONE
)

// ResolveVIF resolves the primary VIF table into a semantic key, unit and
// scale. It returns ok=false for VIFs that require an extension table
// lookup (caller then consults ResolveExtensionFD
// / ResolveExtensionFB / ResolveExtension6F with the following VIFE byte).
func ResolveVIF(vif byte) (Resolved, bool) {
	var code = vif & 0x7F
	switch {
	case code >= 0x00 && code <= 0x07:
		return scaled("energy", "Wh", -3, code&0x07), true
	case code >= 0x08 && code <= 0x0F:
		return scaled("energy", "J", 0, code&0x07), true
	case code >= 0x10 && code <= 0x17:
		return scaled("volume", "m3", -6, code&0x07), true
	case code >= 0x18 && code <= 0x1F:
		return scaled("mass", "kg", -3, code&0x07), true
	case code >= 0x20 && code <= 0x23:
		return timeUnit("on time", code&0x03), true
	case code >= 0x24 && code <= 0x27:
		return timeUnit("operating time", code&0x03), true
	case code >= 0x28 && code <= 0x2F:
		return scaled("power", "W", -3, code&0x07), true
	case code >= 0x30 && code <= 0x37:
		return scaled("power", "J/h", 0, code&0x07), true
	case code >= 0x38 && code <= 0x3F:
		return scaled("volume flow", "m3/h", -6, code&0x07), true
	case code >= 0x40 && code <= 0x47:
		return scaled("volume flow ext", "m3/min", -7, code&0x07), true
	case code >= 0x48 && code <= 0x4F:
		return scaled("volume flow ext", "m3/s", -9, code&0x07), true
	case code >= 0x50 && code <= 0x57:
		return scaled("mass flow", "kg/h", -3, code&0x07), true
	case code >= 0x58 && code <= 0x5B:
		return scaled("flow temperature", "C", -3, code&0x03), true
	case code >= 0x5C && code <= 0x5F:
		return scaled("return temperature", "C", -3, code&0x03), true
	case code >= 0x60 && code <= 0x63:
		return scaled("temperature difference", "K", -3, code&0x03), true
	case code >= 0x64 && code <= 0x67:
		return scaled("external temperature", "C", -3, code&0x03), true
	case code >= 0x68 && code <= 0x6B:
		return scaled("pressure", "bar", -3, code&0x03), true
	case code == 0x6C:
		return Resolved{Key: "date", Unit: "", Scale: 1}, true
	case code == 0x6D:
		return Resolved{Key: "date time", Unit: "", Scale: 1}, true
	case code == 0x6E:
		return Resolved{Key: "units for H.C.A.", Unit: "", Scale: 1}, true
	case code == 0x6F:
		return Resolved{}, false // "reserved", falls through to extension
	case code >= 0x70 && code <= 0x77:
		return scaled("averaging duration", "s", 0, code&0x07), true
	case code == 0x78:
		return Resolved{Key: "fabrication number", Unit: "", Scale: 1}, true
	case code == 0x79:
		return Resolved{Key: "enhanced identification", Unit: "", Scale: 1}, true
	case code == 0x7A:
		return Resolved{Key: "bus address", Unit: "", Scale: 1}, true
	default:
		return Resolved{}, false
	}
}

// ResolveExtensionFD resolves a VIFE byte (code & 0x7F) under the 0xFD/0x7D
// extension table, as used by the "error flags" data record (VIF 0xFD,
// VIFE 0x17).
func ResolveExtensionFD(vife byte) Resolved {
	switch vife & 0x7F {
	case 0x17:
		return Resolved{Key: "error flags", Unit: "", Scale: 1}
	case 0x08:
		return Resolved{Key: "access number", Unit: "", Scale: 1}
	case 0x0C:
		return Resolved{Key: "model / version", Unit: "", Scale: 1}
	case 0x09:
		return Resolved{Key: "medium (as in fixed header)", Unit: "", Scale: 1}
	case 0x0A:
		return Resolved{Key: "manufacturer (as in fixed header)", Unit: "", Scale: 1}
	case 0x11:
		return Resolved{Key: "parameter set identification", Unit: "", Scale: 1}
	default:
		return Resolved{Key: fmt.Sprintf("vife-fd-%02x", vife&0x7F), Unit: "", Scale: 1}
	}
}

// ResolveExtensionFB resolves a VIFE byte under the 0xFB/0x7B extension table.
func ResolveExtensionFB(vife byte) Resolved {
	switch vife & 0x7F {
	case 0x00, 0x01:
		return scaled("energy", "MWh", -1, vife&0x01)
	case 0x08, 0x09:
		return scaled("energy", "GJ", 0, vife&0x01)
	case 0x10, 0x11:
		return scaled("volume", "m3", 2, vife&0x01)
	default:
		return Resolved{Key: fmt.Sprintf("vife-fb-%02x", vife&0x7F), Unit: "", Scale: 1}
	}
}

// ResolveExtension6F resolves a VIFE byte under the 0x6F/0xEF extension table.
func ResolveExtension6F(vife byte) Resolved {
	return Resolved{Key: fmt.Sprintf("vife-6f-%02x", vife&0x7F), Unit: "", Scale: 1}
}

// ResolveManufacturerVIF handles the 0x7F manufacturer-specific VIF: its
// meaning is opaque to the core parser (rendered with Understanding "none").
func ResolveManufacturerVIF() Resolved {
	return Resolved{Key: "manufacturer specific", Unit: "", Scale: 1}
}

func scaled(name, unit string, baseExp int, bits byte) Resolved {
	return Resolved{Key: name, Unit: unit, Scale: pow10(baseExp + int(bits))}
}

func timeUnit(name string, bits byte) Resolved {
	var units = [4]string{"s", "min", "h", "d"}
	return Resolved{Key: name, Unit: units[bits&0x03], Scale: 1}
}

func pow10(exp int) float64 {
	var result = 1.0
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			result *= 10
		}
	} else {
		for i := 0; i < -exp; i++ {
			result /= 10
		}
	}
	return result
}
