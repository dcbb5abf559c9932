//go:build linux

package serialio

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setCustomBaud applies a non-standard bit rate (one github.com/pkg/term's
// SetSpeed table doesn't cover, e.g. wM-Bus dongles that run at 868000 bps
// framing-adjacent odd rates) via the Linux-specific termios2/BOTHER ioctl
// pair, which accepts an arbitrary integer baud rather than one of the
// POSIX B-constants.
func setCustomBaud(fd int, baud uint32) error {
	var t, err = unix.IoctlGetTermios(fd, unix.TCGETS2)
	if err != nil {
		return fmt.Errorf("serialio: TCGETS2: %w", err)
	}

	t.Cflag &^= unix.CBAUD | unix.CBAUDEX
	t.Cflag |= unix.BOTHER
	t.Ispeed = baud
	t.Ospeed = baud

	if err := unix.IoctlSetTermios(fd, unix.TCSETS2, t); err != nil {
		return fmt.Errorf("serialio: TCSETS2 at %d baud: %w", baud, err)
	}
	return nil
}
