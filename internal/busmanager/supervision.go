package busmanager

import (
	"errors"
	"time"

	"github.com/wmbus-tools/wmbusgw/internal/alarm"
	"github.com/wmbus-tools/wmbusgw/internal/serialio"
)

var errNoReopenConfigured = errors.New("busmanager: no reopen function configured")

// Tick runs one pass of spec §4.4's periodic supervision: drop dead devices,
// issue scheduled resets, force-reset on excessive protocol errors, and
// raise inactivity alarms. Intended to be called from an external ticker
// goroutine; every step below takes at most one lock at a time and never
// holds it across reset()'s blocking sleep/reopen.
func (m *Manager) Tick(now time.Time) {
	m.reapDead(now)
	m.reapResets(now)
	m.reapProtocolErrors(now)
	m.reapInactivity(now)
}

// reapDead implements bullet 1: close and drop every device marked not
// working (e.g. by RunDevice after a failed read); if the set becomes empty, raise
// SpecifiedDeviceNotFound or request shutdown.
func (m *Manager) reapDead(time.Time) {
	for _, dev := range m.Devices() {
		var working, _, _, _, _ = dev.snapshot()
		if working {
			continue
		}
		m.log.Warn("removing device marked not working", "device", dev.Alias)
		m.RemoveDevice(dev.Alias)
	}

	if m.Count() > 0 {
		return
	}
	if m.exitOnNoDevice {
		if m.shutdown != nil {
			m.shutdown()
		}
		return
	}
	m.alarms.Raise(alarm.Alarm{Kind: alarm.SpecifiedDeviceNotFound, Context: "*", Message: "no devices remain"})
}

// reapResets implements bullet 2: preemptive resets on devices past their
// reset interval with no pending data, skipping read-only devices.
func (m *Manager) reapResets(now time.Time) {
	for _, dev := range m.Devices() {
		var working, _, lastReset, pending, _ = dev.snapshot()
		if !working || dev.ReadOnly || pending {
			continue
		}
		if dev.ResetInterval <= 0 || now.Sub(lastReset) < dev.ResetInterval {
			continue
		}
		m.log.Info("preemptive reset due", "device", dev.Alias)
		if err := dev.reset(m.reopenFor(dev.Alias)); err != nil {
			m.log.Error("preemptive reset failed", "device", dev.Alias, "err", err)
			m.alarms.Raise(alarm.Alarm{Kind: alarm.RegularResetFailure, Context: dev.Alias, Message: err.Error()})
		}
	}
}

// reapProtocolErrors implements bullet 3: force a reset once a device's
// protocol-error counter crosses the threshold; if that forced reset fails
// too, raise DeviceFailure and shut the manager down.
func (m *Manager) reapProtocolErrors(now time.Time) {
	for _, dev := range m.Devices() {
		var working, _, _, _, errCount = dev.snapshot()
		if !working || errCount < protocolErrorThreshold {
			continue
		}
		m.log.Warn("forcing reset: protocol error threshold exceeded", "device", dev.Alias, "count", errCount)
		if err := dev.reset(m.reopenFor(dev.Alias)); err != nil {
			m.log.Error("forced reset failed, shutting down", "device", dev.Alias, "err", err)
			m.alarms.Raise(alarm.Alarm{Kind: alarm.DeviceFailure, Context: dev.Alias, Message: err.Error()})
			if m.shutdown != nil {
				m.shutdown()
			}
			continue
		}
		dev.mu.Lock()
		dev.protocolErrorCount = 0
		dev.mu.Unlock()
	}
}

// reapInactivity implements bullet 4: raise DeviceInactivity and reset a
// device that has gone silent past its timeout, but only while the current
// time falls inside its configured activity window.
func (m *Manager) reapInactivity(now time.Time) {
	for _, dev := range m.Devices() {
		var working, lastReceived, _, _, _ = dev.snapshot()
		if !working || dev.Timeout <= 0 {
			continue
		}
		if now.Sub(lastReceived) <= dev.Timeout {
			continue
		}
		if !dev.ActivityWindow.Contains(now) {
			continue
		}
		m.log.Warn("device inactive, resetting", "device", dev.Alias, "timeout", dev.Timeout)
		m.alarms.Raise(alarm.Alarm{Kind: alarm.DeviceInactivity, Context: dev.Alias, Message: "no telegram received within timeout"})
		if err := dev.reset(m.reopenFor(dev.Alias)); err != nil {
			m.log.Error("inactivity reset failed", "device", dev.Alias, "err", err)
			m.alarms.Raise(alarm.Alarm{Kind: alarm.RegularResetFailure, Context: dev.Alias, Message: err.Error()})
		}
	}
}

func (m *Manager) reopenFor(alias string) func() (serialio.Port, error) {
	return func() (serialio.Port, error) {
		if m.reopen == nil {
			return nil, errNoReopenConfigured
		}
		return m.reopen(alias)
	}
}
