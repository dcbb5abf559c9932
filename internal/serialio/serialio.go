// Package serialio is the thin real-device serial backend the framers in
// internal/framer read and write through. Grounded directly on doismellburning/samoyed's
// own serial_port.go (a github.com/pkg/term-backed wrapper around
// term.Open/SetSpeed), kept conceptually (open/write/read/close) but
// rewritten without the cgo/C-struct scaffolding that file carries as an
// artifact of Dire Wolf's C ancestry rather than of the serial-port concern
// itself.
package serialio

import (
	"fmt"
	"io"

	"github.com/pkg/term"
	"golang.org/x/sys/unix"
)

// standardBauds are the rates github.com/pkg/term.SetSpeed accepts directly.
var standardBauds = map[int]bool{
	1200: true, 2400: true, 4800: true, 9600: true,
	19200: true, 38400: true, 57600: true, 115200: true,
}

// Port is the minimal contract a framer needs from a transport: a device
// name, a byte stream, and a way to reconfigure its speed.
type Port interface {
	io.ReadWriteCloser
	SetBaud(baud int) error
}

// TermPort is a Port backed by a real tty via github.com/pkg/term.
type TermPort struct {
	device string
	t      *term.Term
}

// Open opens device in raw mode and, if baud is nonzero, sets its speed.
// baud == 0 leaves the port's current speed alone, matching doismellburning/samoyed's
// own serial_port_open semantics.
func Open(device string, baud int) (*TermPort, error) {
	var t, err = term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serialio: open %s: %w", device, err)
	}
	var p = &TermPort{device: device, t: t}
	if baud != 0 {
		if err := p.SetBaud(baud); err != nil {
			t.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *TermPort) Read(b []byte) (int, error)  { return p.t.Read(b) }
func (p *TermPort) Write(b []byte) (int, error) { return p.t.Write(b) }
func (p *TermPort) Close() error                { return p.t.Close() }

// SetBaud applies baud. For one of github.com/pkg/term's standard rates this
// goes through Term.SetSpeed directly; for anything else it attempts the
// Linux termios2/BOTHER ioctl path (setCustomBaud) against a second file
// descriptor on the same device node — termios settings belong to the tty
// line, not to an individual open file description, so this reaches the
// port TermPort already has open. If that also fails (non-Linux, or the
// device doesn't support it), it falls back to 4800, as doismellburning/samoyed's serial_port.go does.
func (p *TermPort) SetBaud(baud int) error {
	if standardBauds[baud] {
		return p.t.SetSpeed(baud)
	}

	var fd, err = unix.Open(p.device, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err == nil {
		err = setCustomBaud(fd, uint32(baud))
		unix.Close(fd)
		if err == nil {
			return nil
		}
	}
	return p.t.SetSpeed(4800)
}

// HexSource is a Port over a fixed, pre-decoded byte slice: the backend for
// devicespec's "hex" and "simulation" sources (§6.3), which replay a single
// already-framed telegram rather than talking to a real device.
type HexSource struct {
	data []byte
	pos  int
}

// NewHexSource builds a Port that yields data once, then io.EOF.
func NewHexSource(data []byte) *HexSource {
	return &HexSource{data: data}
}

func (h *HexSource) Read(b []byte) (int, error) {
	if h.pos >= len(h.data) {
		return 0, io.EOF
	}
	var n = copy(b, h.data[h.pos:])
	h.pos += n
	return n, nil
}

func (h *HexSource) Write([]byte) (int, error) { return 0, fmt.Errorf("serialio: hex source is read-only") }
func (h *HexSource) Close() error              { return nil }
func (h *HexSource) SetBaud(int) error         { return nil }
