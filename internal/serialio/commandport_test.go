package serialio

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPortReadsStdout(t *testing.T) {
	var port, err = NewCommandPort("printf 'T1;1;rssi=-61;2A442D2C998182736112345678'")
	require.NoError(t, err)
	defer port.Close()

	var out, readErr = io.ReadAll(port)
	require.NoError(t, readErr)
	assert.Contains(t, string(out), "2A442D2C998182736112345678")
}

func TestCommandPortWriteUnsupported(t *testing.T) {
	var port, err = NewCommandPort("true")
	require.NoError(t, err)
	defer port.Close()

	var _, writeErr = port.Write([]byte("x"))
	assert.Error(t, writeErr)
}

func TestCommandPortCloseKillsProcess(t *testing.T) {
	var port, err = NewCommandPort("sleep 30")
	require.NoError(t, err)
	assert.NoError(t, port.Close())
}
