// Package devicespec implements the device specification string grammar of
// spec §6.3: a hand-rolled recursive-descent parse over colon-delimited
// tokens, in the style of doismellburning/samoyed's own channel-spec parsing
// (src/config.go's split/alldigits token-by-token approach), simplified out
// of its cgo/C-struct scaffolding.
package devicespec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
)

// ErrInvalid is returned for any device-spec or send-command string that
// does not satisfy the grammar's invariants.
var ErrInvalid = errors.New("devicespec: invalid specification")

// Type names the dongle/transport a SpecifiedDevice talks to.
type Type int

const (
	AUTO Type = iota
	IM871A
	AMB8465
	CUL
	RC1180
	IU880B
	RTLWMBUS
	RAWTTY
	MBUSMASTER
	SIMULATION
	HEX
)

var typeNames = map[string]Type{
	"auto":       AUTO,
	"im871a":     IM871A,
	"amb8465":    AMB8465,
	"cul":        CUL,
	"rc1180":     RC1180,
	"iu880b":     IU880B,
	"rtlwmbus":   RTLWMBUS,
	"rawtty":     RAWTTY,
	"mbus":       MBUSMASTER,
	"mbusmaster": MBUSMASTER,
	"simulation": SIMULATION,
	"hex":        HEX,
}

func (t Type) String() string {
	for name, typ := range typeNames {
		if typ == t {
			return name
		}
	}
	return "unknown"
}

// SpecifiedDevice is a user-declared device, immutable once parsed.
type SpecifiedDevice struct {
	BusAlias  string
	File      string
	Command   string
	Type      Type
	ID        string
	Extras    map[string]string
	Baud      int
	Frequency string
	LinkModes linkmode.Set

	IsTTY        bool
	IsStdin      bool
	IsFile       bool
	IsSimulation bool
	IsHex        bool
}

// Parse parses one device-spec string:
//
//	[bus_alias=]{file | CMD(shell)}:{type[ [id] ][(extras)]}:[bps]:[frequency]:[linkmodes]
//
// Every token after bus_alias is optional; trailing colons may simply be
// omitted. Tabs are rejected explicitly (spec §9 design note): the XMQ
// library the original source shares a tokenizer with accepts tabs as
// separators elsewhere, but a device-spec string never legitimately
// contains one.
func Parse(spec string) (SpecifiedDevice, error) {
	var d SpecifiedDevice
	d.Extras = map[string]string{}

	if strings.ContainsRune(spec, '\t') {
		return d, fmt.Errorf("%w: tab character in device spec %q", ErrInvalid, spec)
	}

	var rest = spec
	if eq := strings.Index(rest, "="); eq >= 0 && !strings.ContainsAny(rest[:eq], ":()") {
		d.BusAlias = rest[:eq]
		rest = rest[eq+1:]
	}

	var tokens = splitUnescaped(rest, ':')
	if len(tokens) == 0 || tokens[0] == "" {
		return d, fmt.Errorf("%w: empty device spec", ErrInvalid)
	}

	// A bare type token (e.g. "im871a[id]", "auto", "rtlwmbus(device=0)")
	// means the file/command is omitted entirely: the bus manager is left
	// to auto-discover the physical device for that type. Only consume
	// tokens[0] as file/command when it does not look like a type name.
	var idx = 0
	var explicitAuto = false
	if looksLikeTypeToken(tokens[0]) {
		if err := parseTypeToken(&d, tokens[0]); err != nil {
			return d, err
		}
		idx = 1
	} else {
		if err := parseFileOrCommand(&d, tokens[0]); err != nil {
			return d, err
		}
		if len(tokens) > 1 && tokens[1] != "" {
			if err := parseTypeToken(&d, tokens[1]); err != nil {
				return d, err
			}
			explicitAuto = d.Type == AUTO
		} else {
			d.Type = AUTO
		}
		idx = 2
	}

	if len(tokens) > idx && tokens[idx] != "" {
		var baud, err = strconv.Atoi(tokens[idx])
		if err != nil {
			return d, fmt.Errorf("%w: bad baud rate %q", ErrInvalid, tokens[idx])
		}
		d.Baud = baud
	}
	idx++

	if len(tokens) > idx && tokens[idx] != "" {
		d.Frequency = tokens[idx]
	}
	idx++

	if len(tokens) > idx && tokens[idx] != "" {
		var lm, err = linkmode.Parse(tokens[idx])
		if err != nil {
			return d, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		d.LinkModes = lm
	}

	if explicitAuto && d.File != "" {
		return d, fmt.Errorf("%w: type auto cannot be combined with a file", ErrInvalid)
	}
	if d.File != "" && d.Command != "" {
		return d, fmt.Errorf("%w: file and CMD() are mutually exclusive", ErrInvalid)
	}

	return d, nil
}

// looksLikeTypeToken reports whether token's base name (before any [id] or
// (extras) suffix) names a known device type.
func looksLikeTypeToken(token string) bool {
	var name = token
	if p := strings.IndexAny(name, "[("); p >= 0 {
		name = name[:p]
	}
	var _, ok = typeNames[strings.ToLower(name)]
	return ok
}

func parseFileOrCommand(d *SpecifiedDevice, token string) error {
	switch {
	case strings.HasPrefix(token, "CMD(") && strings.HasSuffix(token, ")"):
		d.Command = token[len("CMD(") : len(token)-1]
	case token == "stdin":
		d.File = token
		d.IsStdin = true
	case isHexString(token):
		d.File = token
		d.IsHex = true
		d.IsSimulation = true
	default:
		d.File = token
		d.IsTTY = strings.HasPrefix(token, "/dev/")
	}
	return nil
}

func parseTypeToken(d *SpecifiedDevice, token string) error {
	var name = token
	var extras string

	if p := strings.IndexByte(name, '('); p >= 0 {
		if !strings.HasSuffix(name, ")") {
			return fmt.Errorf("%w: unterminated extras in %q", ErrInvalid, token)
		}
		extras = name[p+1 : len(name)-1]
		name = name[:p]
	}
	if b := strings.IndexByte(name, '['); b >= 0 {
		if !strings.HasSuffix(name, "]") {
			return fmt.Errorf("%w: unterminated id in %q", ErrInvalid, token)
		}
		d.ID = name[b+1 : len(name)-1]
		name = name[:b]
	}

	var typ, ok = typeNames[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: unknown device type %q", ErrInvalid, name)
	}
	d.Type = typ
	if typ == SIMULATION || typ == HEX {
		d.IsSimulation = true
	}
	if typ == HEX {
		d.IsHex = true
	}

	for _, kv := range splitUnescaped(extras, ',') {
		if kv == "" {
			continue
		}
		if eq := strings.IndexByte(kv, '='); eq >= 0 {
			d.Extras[kv[:eq]] = kv[eq+1:]
		} else {
			d.Extras[kv] = ""
		}
	}
	return nil
}

// splitUnescaped splits s on sep, but never inside a CMD(...) or (...) span,
// so a shell command containing the separator is not torn apart.
func splitUnescaped(s string, sep byte) []string {
	var out []string
	var depth int
	var start int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if s[i] == sep && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

func isHexString(s string) bool {
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
