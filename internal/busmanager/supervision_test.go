package busmanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmbus-tools/wmbusgw/internal/alarm"
	"github.com/wmbus-tools/wmbusgw/internal/devicespec"
	"github.com/wmbus-tools/wmbusgw/internal/serialio"
)

func init() {
	resetSleep = time.Millisecond
}

type recordingSink struct {
	raised []alarm.Alarm
}

func (r *recordingSink) Raise(a alarm.Alarm) {
	r.raised = append(r.raised, a)
}

func TestTickReapsDeadDeviceAndRaisesAlarmWhenEmpty(t *testing.T) {
	var rec = &recordingSink{}
	var m = NewManager(nil, WithAlarmSink(rec))
	var dev = NewBusDevice("bus1", devicespec.IM871A, &fakePort{}, echoFramer{}, nil)
	dev.MarkNotWorking()
	m.AddDevice(dev)

	m.Tick(time.Now())

	assert.Equal(t, 0, m.Count())
	require.Len(t, rec.raised, 1)
	assert.Equal(t, alarm.SpecifiedDeviceNotFound, rec.raised[0].Kind)
}

func TestTickExitsOnNoDeviceWhenConfigured(t *testing.T) {
	var shutdownCalled = false
	var m = NewManager(nil,
		WithExitOnNoDevice(true),
		WithShutdownFunc(func() { shutdownCalled = true }),
	)
	var dev = NewBusDevice("bus1", devicespec.IM871A, &fakePort{}, echoFramer{}, nil)
	dev.MarkNotWorking()
	m.AddDevice(dev)

	m.Tick(time.Now())
	assert.True(t, shutdownCalled)
}

func TestTickResetsDevicePastResetInterval(t *testing.T) {
	var reopened = false
	var m = NewManager(nil, WithReopen(func(alias string) (serialio.Port, error) {
		reopened = true
		return &fakePort{}, nil
	}))
	var dev = NewBusDevice("bus1", devicespec.IM871A, &fakePort{}, echoFramer{}, nil)
	dev.ResetInterval = time.Millisecond
	dev.lastReset = time.Now().Add(-time.Hour)
	m.AddDevice(dev)

	time.Sleep(2 * time.Millisecond)
	m.Tick(time.Now())
	assert.True(t, reopened)
}

func TestTickSkipsResetForReadOnlyAndPendingData(t *testing.T) {
	var reopened = false
	var m = NewManager(nil, WithReopen(func(alias string) (serialio.Port, error) {
		reopened = true
		return &fakePort{}, nil
	}))
	var dev = NewBusDevice("bus1", devicespec.IM871A, &fakePort{}, echoFramer{}, nil)
	dev.ResetInterval = time.Millisecond
	dev.ReadOnly = true
	dev.lastReset = time.Now().Add(-time.Hour)
	m.AddDevice(dev)

	time.Sleep(2 * time.Millisecond)
	m.Tick(time.Now())
	assert.False(t, reopened)
}

func TestTickForceResetsOnExcessiveProtocolErrors(t *testing.T) {
	var reopened = false
	var m = NewManager(nil, WithReopen(func(alias string) (serialio.Port, error) {
		reopened = true
		return &fakePort{}, nil
	}))
	var dev = NewBusDevice("bus1", devicespec.IM871A, &fakePort{}, echoFramer{}, nil)
	m.AddDevice(dev)

	for i := 0; i < protocolErrorThreshold; i++ {
		dev.RecordProtocolError()
	}
	m.Tick(time.Now())
	assert.True(t, reopened)

	var _, _, _, _, errCount = dev.snapshot()
	assert.Equal(t, 0, errCount)
}

func TestTickForceResetFailureRaisesDeviceFailureAndShutsDown(t *testing.T) {
	var rec = &recordingSink{}
	var shutdownCalled = false
	var m = NewManager(nil,
		WithAlarmSink(rec),
		WithShutdownFunc(func() { shutdownCalled = true }),
		// No WithReopen: reset() fails with errNoReopenConfigured.
	)
	var dev = NewBusDevice("bus1", devicespec.IM871A, &fakePort{}, echoFramer{}, nil)
	m.AddDevice(dev)

	for i := 0; i < protocolErrorThreshold; i++ {
		dev.RecordProtocolError()
	}
	m.Tick(time.Now())

	assert.True(t, shutdownCalled)
	require.Len(t, rec.raised, 1)
	assert.Equal(t, alarm.DeviceFailure, rec.raised[0].Kind)
}

func TestTickRaisesInactivityWithinActivityWindow(t *testing.T) {
	var rec = &recordingSink{}
	var m = NewManager(nil, WithAlarmSink(rec), WithReopen(func(string) (serialio.Port, error) {
		return &fakePort{}, nil
	}))
	var dev = NewBusDevice("bus1", devicespec.IM871A, &fakePort{}, echoFramer{}, nil)
	dev.Timeout = time.Millisecond
	dev.lastReceived = time.Now().Add(-time.Hour)
	dev.ActivityWindow = nil // always active
	m.AddDevice(dev)

	m.Tick(time.Now())
	require.Len(t, rec.raised, 1)
	assert.Equal(t, alarm.DeviceInactivity, rec.raised[0].Kind)
}

func TestTickSkipsInactivityOutsideActivityWindow(t *testing.T) {
	var rec = &recordingSink{}
	var m = NewManager(nil, WithAlarmSink(rec))
	var dev = NewBusDevice("bus1", devicespec.IM871A, &fakePort{}, echoFramer{}, nil)
	dev.Timeout = time.Millisecond
	dev.lastReceived = time.Now().Add(-time.Hour)

	var window, err = ParseActivityWindow("08-09")
	require.NoError(t, err)
	dev.ActivityWindow = window
	m.AddDevice(dev)

	// Pick a fixed "now" well outside 08-09.
	var now = time.Date(2026, 7, 31, 22, 0, 0, 0, time.UTC)
	m.Tick(now)
	assert.Empty(t, rec.raised)
}
