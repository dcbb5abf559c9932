package framer

// SimulationFramer replays a devicespec "hex"/"simulation" source: its bytes
// are already the final, CRC-trimmed raw telegram, decoded once from the
// device-spec hex string, so no CRC step runs; the WMBus length/C-field
// detector still delimits the frame.
type SimulationFramer struct {
	*genericWMBusFramer
}

// NewSimulation builds a simulation framer.
func NewSimulation(device string) *SimulationFramer {
	return &SimulationFramer{genericWMBusFramer: newGenericWMBusFramer(device, noCRC, nil)}
}
