// Command wmbus-analyze decodes a single hex-encoded wM-Bus/M-Bus telegram
// and prints its field-by-field explanation (spec §6.4). Reads one telegram
// per line from stdin, or a single telegram given as the sole argument.
// Grounded on doismellburning/samoyed's own decode_aprs command: a thin stdin-scanning
// loop (src/decode_aprs_main.go's DecodeAPRSMain) handing each line to a
// decode-and-print routine, here swapping AX.25 frame decode for
// telegram.Parse.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

func main() {
	var ansi = pflag.BoolP("ansi", "a", false, "Colorize output with ANSI escapes (spec §6.4's understanding-level colors).")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wmbus-analyze [options] [hex-telegram]")
		fmt.Fprintln(os.Stderr, "With no argument, reads one hex telegram per line from stdin.")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	var formats = telegram.NewMapFormatCache()

	if pflag.NArg() > 0 {
		analyzeLine(pflag.Arg(0), formats, *ansi)
		return
	}

	var scanner = bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var line = strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			fmt.Println(line)
			continue
		}
		analyzeLine(line, formats, *ansi)
	}
}

func analyzeLine(line string, formats telegram.FormatCache, ansi bool) {
	fmt.Println()
	fmt.Println(line)

	var line_ = strings.ReplaceAll(line, " ", "")
	var frame, err = hex.DecodeString(line_)
	if err != nil {
		fmt.Fprintf(os.Stderr, "not a hex telegram: %v\n", err)
		return
	}

	var tg, perr = telegram.Parse(telegram.About{Device: "wmbus-analyze"}, frame, telegram.NoKeystore{}, formats)
	if perr != nil {
		fmt.Fprintf(os.Stderr, "parse failed: %v\n", perr)
	}
	if tg == nil {
		return
	}

	if ansi {
		fmt.Println(telegram.RenderANSI(tg))
		return
	}
	for _, l := range telegram.RenderLines(tg) {
		fmt.Println(l)
	}
}
