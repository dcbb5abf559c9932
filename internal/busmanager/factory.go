package busmanager

import (
	"fmt"

	"github.com/wmbus-tools/wmbusgw/internal/devicespec"
	"github.com/wmbus-tools/wmbusgw/internal/framer"
	"github.com/wmbus-tools/wmbusgw/internal/serialio"
)

// ErrUnsupportedDeviceType is returned by NewFramer for a devicespec.Type it
// has no framer for (currently only devicespec.AUTO, which must be resolved
// to a concrete type by auto-discovery first).
var ErrUnsupportedDeviceType = fmt.Errorf("busmanager: unsupported device type")

// OpenPort opens the transport a SpecifiedDevice names: a real tty via
// serialio.Open for a file path, an external helper process via
// serialio.NewCommandPort for "CMD(shell)", or an in-memory replay source via
// serialio.NewHexSource for "hex"/"simulation" entries.
func OpenPort(spec devicespec.SpecifiedDevice) (serialio.Port, error) {
	switch {
	case spec.Command != "":
		return serialio.NewCommandPort(spec.Command)
	case spec.IsHex || spec.IsSimulation:
		var data, err = decodeHex(spec.File)
		if err != nil {
			return nil, fmt.Errorf("busmanager: hex source %q: %w", spec.File, err)
		}
		return serialio.NewHexSource(data), nil
	case spec.File != "":
		return serialio.Open(spec.File, spec.Baud)
	default:
		return nil, fmt.Errorf("busmanager: device spec has no file, command, or hex source")
	}
}

// NewFramer builds the framer.Framer for a concrete (non-AUTO) device type.
// send is only used by devicespec.MBUSMASTER, to write a constructed M-Bus
// frame back out to the port; every other type ignores it.
func NewFramer(typ devicespec.Type, spec devicespec.SpecifiedDevice, send func([]byte) error) (framer.Framer, error) {
	switch typ {
	case devicespec.IM871A:
		return framer.NewIM871A(spec.File), nil
	case devicespec.AMB8465:
		return framer.NewAMB8465(spec.File), nil
	case devicespec.RC1180:
		return framer.NewRC1180(spec.File), nil
	case devicespec.IU880B:
		return framer.NewIU880B(spec.File), nil
	case devicespec.CUL:
		return framer.NewCUL(spec.File), nil
	case devicespec.RTLWMBUS:
		return framer.NewRTLWMBus(spec.File), nil
	case devicespec.RAWTTY:
		var _, crcPresent = spec.Extras["crc"]
		return framer.NewRawTTY(spec.File, crcPresent), nil
	case devicespec.MBUSMASTER:
		return framer.NewMBusMaster(spec.File, send), nil
	case devicespec.SIMULATION, devicespec.HEX:
		return framer.NewSimulation(spec.File), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDeviceType, typ)
	}
}
