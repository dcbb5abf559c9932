package busmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmbus-tools/wmbusgw/internal/framer"
)

func TestParseSendCommandVariants(t *testing.T) {
	var cases = []struct {
		cmd  string
		want framer.StartsWith
	}{
		{"sendci:bus1:4401", framer.CIField},
		{"sendc:bus1:4401", framer.CField},
		{"sends:bus1:4401", framer.ShortFrame},
		{"sendl:bus1:4401", framer.LongFrame},
	}
	for _, c := range cases {
		var parsed, err = ParseSendCommand(c.cmd)
		require.NoError(t, err, c.cmd)
		assert.Equal(t, "bus1", parsed.Bus)
		assert.Equal(t, c.want, parsed.StartsWith)
		assert.Equal(t, "4401", parsed.HexContent)
	}
}

func TestParseSendCommandRejectsUnknownPrefix(t *testing.T) {
	var _, err = ParseSendCommand("sendx:bus1:4401")
	assert.ErrorIs(t, err, ErrInvalidSendCommand)
}

func TestParseSendCommandRejectsMalformedHex(t *testing.T) {
	var _, err = ParseSendCommand("sendc:bus1:zzzz")
	assert.ErrorIs(t, err, ErrInvalidSendCommand)
}

func TestParseSendCommandRejectsTooFewParts(t *testing.T) {
	var _, err = ParseSendCommand("sendc:bus1")
	assert.ErrorIs(t, err, ErrInvalidSendCommand)
}
