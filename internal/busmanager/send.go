package busmanager

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/wmbus-tools/wmbusgw/internal/framer"
)

// ErrInvalidSendCommand is returned by ParseSendCommand for any string that
// does not satisfy the send-command grammar of spec §6.3.
var ErrInvalidSendCommand = errors.New("busmanager: invalid send command")

// sendPrefixes maps the send-command grammar's framing-layer selector
// (spec §6.3: "send{ci,c,s,l}:<bus>:<hexstring>") onto framer.StartsWith.
// This lives here rather than in internal/devicespec, since the grammar
// names a bus alias already owned by a Manager, not a device specification.
var sendPrefixes = map[string]framer.StartsWith{
	"sendci": framer.CIField,
	"sendc":  framer.CField,
	"sends":  framer.ShortFrame,
	"sendl":  framer.LongFrame,
}

// ParseSendCommand parses "send{ci,c,s,l}:<bus>:<hexstring>" into a
// SendBusContent ready for Manager.QueueSend.
func ParseSendCommand(cmd string) (SendBusContent, error) {
	var parts = strings.SplitN(cmd, ":", 3)
	if len(parts) != 3 {
		return SendBusContent{}, fmt.Errorf("%w: %q", ErrInvalidSendCommand, cmd)
	}

	var startsWith, ok = sendPrefixes[strings.ToLower(parts[0])]
	if !ok {
		return SendBusContent{}, fmt.Errorf("%w: unknown prefix %q", ErrInvalidSendCommand, parts[0])
	}
	if parts[1] == "" {
		return SendBusContent{}, fmt.Errorf("%w: empty bus alias", ErrInvalidSendCommand)
	}
	if _, err := decodeHex(parts[2]); err != nil {
		return SendBusContent{}, fmt.Errorf("%w: %v", ErrInvalidSendCommand, err)
	}

	return SendBusContent{Bus: parts[1], StartsWith: startsWith, HexContent: parts[2]}, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
