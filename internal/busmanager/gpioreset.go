package busmanager

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOReset is the optional hard-reset line for embedded deployments (spec
// §4.4's reset() extended with a physical reset pin rather than only a
// close/reopen cycle): pulsing a GPIO line low then high resets dongles
// wired to a dedicated reset pin instead of relying on USB re-enumeration.
type GPIOReset struct {
	line *gpiocdev.Line
}

// OpenGPIOReset requests offset on chip (e.g. "gpiochip0") as an output,
// idle high.
func OpenGPIOReset(chip string, offset int) (*GPIOReset, error) {
	var line, err = gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(1))
	if err != nil {
		return nil, fmt.Errorf("busmanager: gpio reset line %s:%d: %w", chip, offset, err)
	}
	return &GPIOReset{line: line}, nil
}

// Pulse drives the line low for the given duration, then high again.
func (g *GPIOReset) Pulse(low time.Duration) error {
	if err := g.line.SetValue(0); err != nil {
		return fmt.Errorf("busmanager: gpio reset pulse low: %w", err)
	}
	time.Sleep(low)
	if err := g.line.SetValue(1); err != nil {
		return fmt.Errorf("busmanager: gpio reset pulse high: %w", err)
	}
	return nil
}

// Close releases the GPIO line.
func (g *GPIOReset) Close() error {
	return g.line.Close()
}
