package devicespec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
)

func TestParseBareFile(t *testing.T) {
	var d, err = Parse("/dev/ttyUSB0")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", d.File)
	assert.True(t, d.IsTTY)
	assert.Equal(t, AUTO, d.Type)
}

func TestParseTypeWithID(t *testing.T) {
	var d, err = Parse("im871a[12345678]")
	require.NoError(t, err)
	assert.Equal(t, IM871A, d.Type)
	assert.Equal(t, "12345678", d.ID)
	assert.Empty(t, d.File)
}

func TestParseAuto(t *testing.T) {
	var d, err = Parse("auto")
	require.NoError(t, err)
	assert.Equal(t, AUTO, d.Type)
	assert.Empty(t, d.File)
}

func TestParseHex(t *testing.T) {
	var d, err = Parse("hex")
	require.NoError(t, err)
	assert.Equal(t, HEX, d.Type)
	assert.True(t, d.IsHex)
	assert.True(t, d.IsSimulation)
}

func TestParseTypeWithExtras(t *testing.T) {
	var d, err = Parse("rtlwmbus(device=0)")
	require.NoError(t, err)
	assert.Equal(t, RTLWMBUS, d.Type)
	assert.Equal(t, "0", d.Extras["device"])
}

func TestParseFullSpec(t *testing.T) {
	var d, err = Parse("BUS1=/dev/ttyUSB0:im871a:57600:868.95M:c1,t1")
	require.NoError(t, err)
	assert.Equal(t, "BUS1", d.BusAlias)
	assert.Equal(t, "/dev/ttyUSB0", d.File)
	assert.Equal(t, IM871A, d.Type)
	assert.Equal(t, 57600, d.Baud)
	assert.Equal(t, "868.95M", d.Frequency)
	assert.True(t, d.LinkModes.Has(linkmode.C1))
	assert.True(t, d.LinkModes.Has(linkmode.T1))
}

func TestParseMBusShort(t *testing.T) {
	var d, err = Parse("/dev/ttyUSB0:mbus:2400")
	require.NoError(t, err)
	assert.Equal(t, MBUSMASTER, d.Type)
	assert.Equal(t, 2400, d.Baud)
}

func TestParseCommand(t *testing.T) {
	var d, err = Parse("CMD(rtl_wmbus):rtlwmbus")
	require.NoError(t, err)
	assert.Equal(t, "rtl_wmbus", d.Command)
	assert.Equal(t, RTLWMBUS, d.Type)
}

func TestParseAutoWithFileIsInvalid(t *testing.T) {
	var _, err = Parse("/dev/ttyUSB0:auto")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRejectsTab(t *testing.T) {
	var _, err = Parse("/dev/ttyUSB0\t:im871a")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseUnknownType(t *testing.T) {
	var _, err = Parse("/dev/ttyUSB0:notarealtype")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseHexStringIsSimulationSource(t *testing.T) {
	var d, err = Parse("1E44AE4C567834120307")
	require.NoError(t, err)
	assert.True(t, d.IsHex)
	assert.True(t, d.IsSimulation)
}
