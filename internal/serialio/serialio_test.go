package serialio

import (
	"testing"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTermPortReadsThroughRealPTY drives a real pseudo-terminal pair end to
// end: bytes written on the pty master are read back through a TermPort
// opened against the slave side, instead of only exercising in-memory
// buffers.
func TestTermPortReadsThroughRealPTY(t *testing.T) {
	var master, slave, err = pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	var port, openErr = Open(slave.Name(), 9600)
	require.NoError(t, openErr)
	defer port.Close()

	var want = []byte("wmbus-tools")
	var n, writeErr = master.Write(want)
	require.NoError(t, writeErr)
	assert.Equal(t, len(want), n)

	var buf = make([]byte, len(want))
	var readN, readErr = port.Read(buf)
	require.NoError(t, readErr)
	assert.Equal(t, want, buf[:readN])
}

func TestHexSourceYieldsOnceThenEOF(t *testing.T) {
	var src = NewHexSource([]byte{0x01, 0x02, 0x03})
	var buf = make([]byte, 8)
	var n, err = src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, buf[:n])

	var _, eofErr = src.Read(buf)
	assert.Error(t, eofErr)
}

func TestTermPortSetBaudAcceptsNonstandardRate(t *testing.T) {
	var master, slave, err = pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	var port, openErr = Open(slave.Name(), 0)
	require.NoError(t, openErr)
	defer port.Close()

	// 31250 isn't in standardBauds; on Linux this goes through the
	// termios2/BOTHER custom-baud path, falling back to 4800 only if that
	// ioctl path itself is unavailable.
	assert.NoError(t, port.SetBaud(31250))
}
