package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// understandingGlyph renders the second marker character of spec §6.4's
// "NNN [ |C][ !pCE]: description" line format: '!' full, 'p' partial,
// 'E' encrypted, 'C' compressed, space for a fully-understood protocol span
// (Kind == Protocol, Understanding == UnderstandingFull omits the glyph
// since "full protocol" is the unmarked common case).
func understandingGlyph(e Explanation) byte {
	switch e.Understanding {
	case UnderstandingPartial:
		return 'p'
	case UnderstandingEncrypted:
		return 'E'
	case UnderstandingCompressed:
		return 'C'
	case UnderstandingFull:
		if e.Kind == Content {
			return '!'
		}
		return ' '
	default:
		return ' '
	}
}

func kindGlyph(e Explanation) byte {
	if e.Kind == Content {
		return 'C'
	}
	return ' '
}

// RenderLines formats every Explanation as one "NNN [ |C][ !pCE]: description"
// line (spec §6.4), in recorded order.
func RenderLines(t *Telegram) []string {
	var lines = make([]string, 0, len(t.Explanations))
	for _, e := range t.Explanations {
		lines = append(lines, fmt.Sprintf("%03d %c%c: %s", e.Offset, kindGlyph(e), understandingGlyph(e), e.Text))
	}
	return lines
}

// ansiColor picks the SGR color for one Explanation's understanding level:
// green for fully understood, yellow for partial, red for encrypted/unknown,
// cyan for compressed, matching the common terminal-dump convention of
// "green means trust this number".
func ansiColor(e Explanation) string {
	switch e.Understanding {
	case UnderstandingFull:
		return "32" // green
	case UnderstandingPartial:
		return "33" // yellow
	case UnderstandingEncrypted:
		return "31" // red
	case UnderstandingCompressed:
		return "36" // cyan
	default:
		return "31" // red: UnderstandingNone
	}
}

// RenderANSI wraps each line from RenderLines in an SGR color escape.
func RenderANSI(t *Telegram) string {
	var b strings.Builder
	for _, e := range t.Explanations {
		var line = fmt.Sprintf("%03d %c%c: %s", e.Offset, kindGlyph(e), understandingGlyph(e), e.Text)
		fmt.Fprintf(&b, "\x1b[%sm%s\x1b[0m\n", ansiColor(e), line)
	}
	return b.String()
}

// htmlClass names the CSS class RenderHTML assigns an Explanation span,
// mirroring ansiColor's color choice for a browser-rendered dump.
func htmlClass(e Explanation) string {
	switch e.Understanding {
	case UnderstandingFull:
		return "understood-full"
	case UnderstandingPartial:
		return "understood-partial"
	case UnderstandingEncrypted:
		return "understood-encrypted"
	case UnderstandingCompressed:
		return "understood-compressed"
	default:
		return "understood-none"
	}
}

// RenderHTML wraps each line from RenderLines in a classed <span>, one per
// line, newline-joined with a <br>.
func RenderHTML(t *Telegram) string {
	var b strings.Builder
	for i, e := range t.Explanations {
		if i > 0 {
			b.WriteString("<br>\n")
		}
		var line = fmt.Sprintf("%03d %c%c: %s", e.Offset, kindGlyph(e), understandingGlyph(e), e.Text)
		fmt.Fprintf(&b, `<span class="%s">%s</span>`, htmlClass(e), html.EscapeString(line))
	}
	return b.String()
}

// RenderTimestamp formats when using pattern via strftime, the same library
// doismellburning/samoyed uses for its own timestamp_format config knob (src/tq.go).
func RenderTimestamp(pattern string, when time.Time) (string, error) {
	return strftime.Format(pattern, when)
}
