package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderLinesFormat(t *testing.T) {
	var tg = &Telegram{
		Explanations: []Explanation{
			{Offset: 0, Length: 1, Text: "length", Kind: Protocol, Understanding: UnderstandingFull},
			{Offset: 10, Length: 2, Text: "power 5.2 kWh", Kind: Content, Understanding: UnderstandingFull},
			{Offset: 12, Length: 4, Text: "ciphertext", Kind: Content, Understanding: UnderstandingEncrypted},
		},
	}

	var lines = RenderLines(tg)
	require.Len(t, lines, 3)
	assert.Equal(t, "000  : length", lines[0])
	assert.Equal(t, "010 C!: power 5.2 kWh", lines[1])
	assert.Equal(t, "012 CE: ciphertext", lines[2])
}

func TestRenderANSIWrapsSGR(t *testing.T) {
	var tg = &Telegram{Explanations: []Explanation{
		{Offset: 0, Text: "ok", Kind: Protocol, Understanding: UnderstandingFull},
	}}
	var out = RenderANSI(tg)
	assert.Contains(t, out, "\x1b[32m")
	assert.Contains(t, out, "\x1b[0m")
	assert.Contains(t, out, "ok")
}

func TestRenderHTMLEscapesAndClasses(t *testing.T) {
	var tg = &Telegram{Explanations: []Explanation{
		{Offset: 0, Text: "<raw>", Kind: Content, Understanding: UnderstandingPartial},
	}}
	var out = RenderHTML(tg)
	assert.Contains(t, out, "understood-partial")
	assert.Contains(t, out, "&lt;raw&gt;")
}

func TestRenderTimestamp(t *testing.T) {
	var when = time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	var out, err = RenderTimestamp("%Y-%m-%d", when)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-31", out)
}
