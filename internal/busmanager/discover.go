package busmanager

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/jochenvg/go-udev"
	"golang.org/x/sync/singleflight"

	"github.com/wmbus-tools/wmbusgw/internal/devicespec"
)

// probeOrder is spec §4.4's auto-discovery probe sequence: try each dongle
// protocol in turn against a candidate tty until one answers plausibly.
var probeOrder = []devicespec.Type{
	devicespec.AMB8465,
	devicespec.IM871A,
	devicespec.RC1180,
	devicespec.CUL,
	devicespec.IU880B,
}

// probeBaud is the baud rate each candidate type is probed at. Every dongle
// in probeOrder defaults to 57600 except CUL, which defaults to 9600.
var probeBaud = map[devicespec.Type]int{
	devicespec.AMB8465: 57600,
	devicespec.IM871A:  57600,
	devicespec.RC1180:  57600,
	devicespec.CUL:     9600,
	devicespec.IU880B:  57600,
}

// negativeCache remembers ttys that failed every probe, so repeated
// discovery ticks don't re-probe a known-dumb serial port every time (spec
// §4.4: "not_serial_wmbus_devices negative-cache... removed if tty later
// disappears").
type negativeCache struct {
	mu    sync.Mutex
	dirty map[string]time.Time
}

func newNegativeCache() *negativeCache {
	return &negativeCache{dirty: make(map[string]time.Time)}
}

func (c *negativeCache) contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	var _, ok = c.dirty[path]
	return ok
}

func (c *negativeCache) add(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[path] = time.Now()
}

// reconcile drops negative-cache entries for ttys no longer present, per
// spec §4.4's "removed if tty later disappears".
func (c *negativeCache) reconcile(present map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path := range c.dirty {
		if !present[path] {
			delete(c.dirty, path)
		}
	}
}

// Discoverer enumerates candidate serial devices and probes unowned ones
// against every known dongle protocol, collapsing concurrent probes of the
// same tty path via singleflight (spec §4.4's periodic discovery pass).
type Discoverer struct {
	negative *negativeCache
	group    singleflight.Group

	// probe opens path at baud for typ and reports whether it answered
	// plausibly. Overridable in tests; defaults to probeHandshake.
	probe func(ctx context.Context, path string, typ devicespec.Type, baud int) bool

	// probeID optionally reads the dongle's own reported serial/device id
	// after a successful probe. Nil means "id unknown".
	probeID func(ctx context.Context, path string, typ devicespec.Type) string
}

// NewDiscoverer builds a Discoverer with the real udev-backed enumeration.
func NewDiscoverer() *Discoverer {
	return &Discoverer{negative: newNegativeCache(), probe: probeHandshake}
}

// CandidateTTYs enumerates /dev tty nodes via udev's "tty" subsystem filter.
func (d *Discoverer) CandidateTTYs() ([]string, error) {
	var u udev.Udev
	var e = u.NewEnumerate()
	if err := e.AddMatchSubsystem("tty"); err != nil {
		return nil, fmt.Errorf("busmanager: udev enumerate: %w", err)
	}
	var devices, err = e.Devices()
	if err != nil {
		return nil, fmt.Errorf("busmanager: udev enumerate: %w", err)
	}

	var out []string
	for _, dev := range devices {
		var node = dev.Devnode()
		if node != "" {
			out = append(out, node)
		}
	}
	return out, nil
}

// ProbeResult is one successfully identified, not-yet-owned candidate. ID is
// the dongle's own reported serial/device id when the probe handshake
// surfaces one (e.g. IM871A's GET_DEVICEID reply), empty otherwise.
type ProbeResult struct {
	Path string
	Type devicespec.Type
	Baud int
	ID   string
}

// Discover enumerates candidate ttys, skips anything in owned or the
// negative cache, and probes the rest in probeOrder. Each probe result is
// collapsed per-path via singleflight so a tty is never probed twice
// concurrently.
func (d *Discoverer) Discover(ctx context.Context, owned map[string]bool) ([]ProbeResult, error) {
	var candidates, err = d.CandidateTTYs()
	if err != nil {
		return nil, err
	}

	var present = make(map[string]bool, len(candidates))
	for _, c := range candidates {
		present[c] = true
	}
	d.negative.reconcile(present)

	var results []ProbeResult
	for _, path := range candidates {
		if owned[path] || d.negative.contains(path) {
			continue
		}

		var v, err, _ = d.group.Do(path, func() (interface{}, error) {
			return d.probeOne(ctx, path), nil
		})
		if err != nil {
			continue
		}
		var r, ok = v.(*ProbeResult)
		if !ok || r == nil {
			d.negative.add(path)
			continue
		}
		results = append(results, *r)
	}
	return results, nil
}

func (d *Discoverer) probeOne(ctx context.Context, path string) *ProbeResult {
	for _, typ := range probeOrder {
		if d.probe(ctx, path, typ, probeBaud[typ]) {
			var id string
			if d.probeID != nil {
				id = d.probeID(ctx, path, typ)
			}
			return &ProbeResult{Path: path, Type: typ, Baud: probeBaud[typ], ID: id}
		}
	}
	return nil
}

// probeHandshake is the default Discoverer.probe. It always reports false:
// it does not open path and sends no request, so with this default no
// candidate tty is ever identified. Real hardware handshakes are
// dongle-specific command/response exchanges supplied by overriding
// Discoverer.probe.
func probeHandshake(ctx context.Context, path string, typ devicespec.Type, baud int) bool {
	return false
}

// rtlsdrSerials reports whether both the rtl_sdr and rtl_wmbus binaries are
// in PATH. It does not enumerate attached RTL-SDR dongles: the returned
// serial list is always nil.
func rtlsdrSerials() ([]string, bool) {
	if _, err := exec.LookPath("rtl_sdr"); err != nil {
		return nil, false
	}
	if _, err := exec.LookPath("rtl_wmbus"); err != nil {
		return nil, false
	}
	// rtl_sdr has no standard "list serials" subcommand; callers typically
	// configure rtlsdr devices explicitly by index/serial via devicespec
	// extras rather than relying on enumeration here.
	return nil, true
}
