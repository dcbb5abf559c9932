// Package busmanager owns the lifecycle of every configured or auto-detected
// wM-Bus/M-Bus device: opening, supervising, resetting, and tearing down
// heterogeneous radio/serial devices, and funneling their framed telegrams
// into the telegram parser (spec §4.4/§4.5). Grounded on doismellburning/samoyed's own
// src/server.go, which owns a mutex-guarded set of live client connections
// and runs a periodic housekeeping pass over them; the "two mutexes, never
// nested" discipline and the reset/inactivity alarm logic are this package's
// own, direct from spec §4.4/§5.
package busmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wmbus-tools/wmbusgw/internal/alarm"
	"github.com/wmbus-tools/wmbusgw/internal/dedupe"
	"github.com/wmbus-tools/wmbusgw/internal/devicespec"
	"github.com/wmbus-tools/wmbusgw/internal/framer"
	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
	"github.com/wmbus-tools/wmbusgw/internal/rigcontrol"
	"github.com/wmbus-tools/wmbusgw/internal/serialio"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

// DefaultResetInterval is the default preemptive reset period (spec §4.4
// bullet 2), set by NewBusDevice. It is not jittered here; callers may
// overwrite BusDevice.ResetInterval per device.
const DefaultResetInterval = 23 * time.Hour

// resetSleep is spec §4.4 bullet 2's "sleep 3s" between close and reopen.
// A var, not a const, so tests can shrink it instead of taking seconds.
var resetSleep = 3 * time.Second

// protocolErrorThreshold is spec §4.4 bullet 3's "≥ 20" force-reset trigger.
const protocolErrorThreshold = 20

// BusDevice is one live device instance, owned exclusively by a Manager.
type BusDevice struct {
	mu sync.Mutex

	Alias           string
	Type            devicespec.Type
	LinkModes       linkmode.Set // requested ("link_mode_configured")
	ActiveLinkModes linkmode.Set // confirmed by the framer ("link_mode_active")
	ReadOnly        bool

	Port   serialio.Port
	Framer framer.Framer
	Rig    rigcontrol.Controller

	ResetInterval  time.Duration
	Timeout        time.Duration
	ActivityWindow *ActivityWindow

	lastReceived       time.Time
	lastReset          time.Time
	protocolErrorCount int
	isWorking          bool
	hasPendingData     bool
}

// NewBusDevice builds a BusDevice ready to be handed to Manager.AddDevice.
// rig may be nil (defaults to rigcontrol.NoopController{}).
func NewBusDevice(alias string, typ devicespec.Type, port serialio.Port, f framer.Framer, rig rigcontrol.Controller) *BusDevice {
	if rig == nil {
		rig = rigcontrol.NoopController{}
	}
	var now = time.Now()
	return &BusDevice{
		Alias:         alias,
		Type:          typ,
		Port:          port,
		Framer:        f,
		Rig:           rig,
		ResetInterval: DefaultResetInterval,
		Timeout:       0,
		lastReceived:  now,
		lastReset:     now,
		isWorking:     true,
	}
}

// RecordSuccess marks a successful receive, resetting the protocol-error
// counter and the inactivity clock.
func (d *BusDevice) RecordSuccess() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastReceived = time.Now()
	d.protocolErrorCount = 0
}

// RecordProtocolError increments the protocol-error counter (spec §4.4
// bullet 3) and reports whether it has now crossed the force-reset
// threshold.
func (d *BusDevice) RecordProtocolError() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.protocolErrorCount++
	return d.protocolErrorCount >= protocolErrorThreshold
}

// MarkNotWorking flags the device as dead; the next supervision tick removes
// it (spec §4.4 bullet 1).
func (d *BusDevice) MarkNotWorking() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.isWorking = false
}

func (d *BusDevice) snapshot() (working bool, lastReceived, lastReset time.Time, pendingData bool, errCount int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isWorking, d.lastReceived, d.lastReset, d.hasPendingData, d.protocolErrorCount
}

// ApplyLinkModes records lm as the requested link modes and asks the framer
// to set them, keeping the "link_mode_configured" (LinkModes) vs.
// "link_mode_active" (ActiveLinkModes) distinction the original source keeps
// in wmbus.cc. ActiveLinkModes is set to the whole of lm once the framer
// accepts it and is left unchanged when the framer returns an error; a
// subset that the dongle supports is not detected, so after a success the
// two fields are equal.
func (d *BusDevice) ApplyLinkModes(lm linkmode.Set) error {
	d.mu.Lock()
	d.LinkModes = lm
	var f = d.Framer
	d.mu.Unlock()

	if f == nil || lm == 0 {
		return nil
	}
	if err := f.SetLinkModes(lm); err != nil {
		return fmt.Errorf("busmanager: %s: set link modes: %w", d.Alias, err)
	}

	d.mu.Lock()
	d.ActiveLinkModes = lm
	d.mu.Unlock()
	return nil
}

// reset closes, sleeps, reopens, and re-applies link modes, per spec §4.4
// bullet 2: "close, sleep 3s, reopen, re-apply link modes".
func (d *BusDevice) reset(reopen func() (serialio.Port, error)) error {
	d.mu.Lock()
	var port = d.Port
	var lm = d.LinkModes
	d.mu.Unlock()

	if port != nil {
		port.Close()
	}
	time.Sleep(resetSleep)

	var newPort, err = reopen()
	if err != nil {
		return fmt.Errorf("busmanager: reset %s: reopen: %w", d.Alias, err)
	}

	d.mu.Lock()
	d.Port = newPort
	d.lastReset = time.Now()
	d.mu.Unlock()

	if d.Framer != nil {
		d.Framer.Reset()
		if lm != 0 {
			if err := d.ApplyLinkModes(lm); err != nil {
				return fmt.Errorf("busmanager: reset %s: re-apply link modes: %w", d.Alias, err)
			}
		}
	}
	return nil
}

// SendBusContent is one queued outbound transmission (spec §4.5).
type SendBusContent struct {
	Bus         string
	StartsWith  framer.StartsWith
	HexContent  string
}

// maxSendContentLen is spec §4.5's "len(hex_content) ≤ 500" validation limit.
const maxSendContentLen = 500

// TelegramListener receives every telegram a device framer emits, already
// passed through de-duplication.
type TelegramListener func(about telegram.About, frame []byte)

// Manager owns the live device set and the outbound send queue. Per spec
// §4.4's concurrency note, it holds exactly two mutexes (devicesMu,
// sendMu), never nested, and never held across a blocking I/O call.
type Manager struct {
	reopen func(alias string) (serialio.Port, error)

	devicesMu sync.Mutex
	devices   map[string]*BusDevice

	sendMu sync.Mutex
	queue  []SendBusContent

	alarms alarm.Sink
	dedupe *dedupe.FrameCache
	listen TelegramListener

	log *log.Logger

	exitOnNoDevice bool
	shutdown       func()
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithAlarmSink overrides the default alarm.NoopSink.
func WithAlarmSink(sink alarm.Sink) Option {
	return func(m *Manager) { m.alarms = sink }
}

// WithDedupe overrides the default (disabled) frame de-duplication cache.
func WithDedupe(c *dedupe.FrameCache) Option {
	return func(m *Manager) { m.dedupe = c }
}

// WithExitOnNoDevice requests shutdown (via the Shutdown hook set with
// WithShutdownFunc) once the device set becomes empty, instead of only
// raising SpecifiedDeviceNotFound.
func WithExitOnNoDevice(exit bool) Option {
	return func(m *Manager) { m.exitOnNoDevice = exit }
}

// WithShutdownFunc supplies the hook invoked when the manager decides to
// shut the whole serial subsystem down (spec §4.4 bullet 1/§7 "fatal").
func WithShutdownFunc(f func()) Option {
	return func(m *Manager) { m.shutdown = f }
}

// WithReopen supplies the function used to reopen a device's port by bus
// alias during reset() (spec §4.4 bullet 2).
func WithReopen(f func(alias string) (serialio.Port, error)) Option {
	return func(m *Manager) { m.reopen = f }
}

// WithLogger overrides the default log.Default() logger used for device
// lifecycle messages (reads failing, devices removed, resets attempted/failing,
// send-queue items skipped).
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.log = logger }
}

// NewManager builds an empty Manager. listen is invoked once per
// de-duplicated telegram frame, on the calling goroutine of RunDevice.
func NewManager(listen TelegramListener, opts ...Option) *Manager {
	var m = &Manager{
		devices: make(map[string]*BusDevice),
		alarms:  alarm.NoopSink{},
		dedupe:  dedupe.NewFrameCache(false),
		listen:  listen,
		log:     log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddDevice registers dev under its alias. Replaces any existing device with
// the same alias.
func (m *Manager) AddDevice(dev *BusDevice) {
	m.devicesMu.Lock()
	defer m.devicesMu.Unlock()
	m.devices[dev.Alias] = dev
}

// RemoveDevice closes and drops the device with alias, if present.
func (m *Manager) RemoveDevice(alias string) {
	m.devicesMu.Lock()
	var dev = m.devices[alias]
	delete(m.devices, alias)
	m.devicesMu.Unlock()

	if dev != nil && dev.Port != nil {
		dev.Port.Close()
	}
}

// Devices returns a snapshot slice of the currently owned devices.
func (m *Manager) Devices() []*BusDevice {
	m.devicesMu.Lock()
	defer m.devicesMu.Unlock()
	var out = make([]*BusDevice, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out
}

// Device looks a device up by alias.
func (m *Manager) Device(alias string) (*BusDevice, bool) {
	m.devicesMu.Lock()
	defer m.devicesMu.Unlock()
	var d, ok = m.devices[alias]
	return d, ok
}

// Count reports the number of currently owned devices.
func (m *Manager) Count() int {
	m.devicesMu.Lock()
	defer m.devicesMu.Unlock()
	return len(m.devices)
}

// RunDevice drives one device's read loop until ctx is cancelled or a read
// fails: it reads from the device's port, feeds bytes to its framer, passes
// each emitted event through the de-duplication cache, and forwards
// surviving telegrams to the listener. MUST run on its own goroutine; it
// blocks on Port.Read.
func (m *Manager) RunDevice(ctx context.Context, dev *BusDevice) error {
	var devLog = m.log.With("device", dev.Alias)
	var buf = make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var n, err = dev.Port.Read(buf)
		if err != nil {
			dev.MarkNotWorking()
			devLog.Warn("read failed, marking device not working", "err", err)
			return fmt.Errorf("busmanager: %s: read: %w", dev.Alias, err)
		}
		if n == 0 {
			continue
		}

		var events = dev.Framer.OnBytes(buf[:n])
		if len(events) == 0 {
			continue
		}
		dev.RecordSuccess()
		for _, ev := range events {
			if m.dedupe.Seen(ev.Frame) {
				continue
			}
			if m.listen != nil {
				m.listen(ev.About, ev.Frame)
			}
		}
	}
}

// QueueSend pushes content onto the outbound queue under sendMu (spec
// §4.5's queue_send).
func (m *Manager) QueueSend(content SendBusContent) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	m.queue = append(m.queue, content)
}

// DrainSendQueue validates and dispatches every queued item (spec §4.5's
// send_queue): items with oversized or non-hex content, or naming an unknown
// bus, are logged-and-skipped rather than failing the whole drain. A nil
// logSkip falls back to the Manager's own logger.
func (m *Manager) DrainSendQueue(logSkip func(reason string, c SendBusContent)) {
	if logSkip == nil {
		logSkip = func(reason string, c SendBusContent) {
			m.log.Warn("send queue item skipped", "reason", reason, "bus", c.Bus)
		}
	}

	m.sendMu.Lock()
	var items = m.queue
	m.queue = nil
	m.sendMu.Unlock()

	for _, item := range items {
		if len(item.HexContent) > maxSendContentLen {
			logSkip("content too long", item)
			continue
		}
		var content, err = decodeHex(item.HexContent)
		if err != nil {
			logSkip("content not valid hex", item)
			continue
		}
		var dev, ok = m.Device(item.Bus)
		if !ok {
			logSkip("unknown bus alias", item)
			continue
		}
		if err := dev.Framer.SendTelegram(item.StartsWith, content); err != nil {
			logSkip(err.Error(), item)
		}
	}
}
