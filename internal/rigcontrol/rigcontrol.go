// Package rigcontrol is the optional SDR frequency-tuning hook for
// rtl_wmbus-backed devices whose capture frequency must be steered away from
// the 868 MHz default (e.g. regional variants). No teacher analogue exists
// for rig control; this wraps github.com/xylo04/goHamlib, the pack's one
// binding onto the hamlib rig-control library, behind a narrow interface so
// the bus manager never depends on goHamlib directly and tests can use
// NoopController.
package rigcontrol

import (
	"fmt"

	"github.com/xylo04/goHamlib"
)

// Controller steers a radio's receive frequency. SetFrequency takes hertz.
type Controller interface {
	SetFrequency(hz float64) error
	Close() error
}

// NoopController is the silent default: every device without an explicit
// rig-control model configured gets this, and SetFrequency is a no-op.
type NoopController struct{}

func (NoopController) SetFrequency(float64) error { return nil }
func (NoopController) Close() error               { return nil }

// HamlibController drives a real rig through goHamlib.
type HamlibController struct {
	rig *goHamlib.Rig
}

// Open initializes a hamlib rig of the given model talking over device
// (e.g. "/dev/ttyUSB1"). cmd/wmbusgw calls it for any configured device whose
// config entry sets rig_model, passing rig_device as device.
func Open(model int, device string) (*HamlibController, error) {
	var rig = goHamlib.NewRig(model)
	rig.SetConf("rig_pathname", device)
	if err := rig.Open(); err != nil {
		return nil, fmt.Errorf("rigcontrol: open model %d on %s: %w", model, device, err)
	}
	return &HamlibController{rig: rig}, nil
}

// SetFrequency tunes the current VFO to hz.
func (h *HamlibController) SetFrequency(hz float64) error {
	if err := h.rig.SetFreq(goHamlib.RIG_VFO_CURR, hz); err != nil {
		return fmt.Errorf("rigcontrol: set frequency %g: %w", hz, err)
	}
	return nil
}

// Close releases the underlying rig handle.
func (h *HamlibController) Close() error {
	return h.rig.Close()
}
