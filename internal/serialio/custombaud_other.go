//go:build !linux

package serialio

import "fmt"

// setCustomBaud has no portable non-Linux implementation; TermPort.SetBaud
// falls back to 4800 on these platforms.
func setCustomBaud(fd int, baud uint32) error {
	return fmt.Errorf("serialio: custom baud rates are only supported on linux")
}
