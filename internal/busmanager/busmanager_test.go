package busmanager

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmbus-tools/wmbusgw/internal/dedupe"
	"github.com/wmbus-tools/wmbusgw/internal/devicespec"
	"github.com/wmbus-tools/wmbusgw/internal/framer"
	"github.com/wmbus-tools/wmbusgw/internal/linkmode"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

// fakePort is a serialio.Port test double that yields a fixed sequence of
// reads, then io.EOF.
type fakePort struct {
	mu     sync.Mutex
	chunks [][]byte
	pos    int
	closed bool
	writes [][]byte
}

func (f *fakePort) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, io.EOF
	}
	if f.pos >= len(f.chunks) {
		f.closed = true
		return 0, io.EOF
	}
	var n = copy(b, f.chunks[f.pos])
	f.pos++
	return n, nil
}

func (f *fakePort) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte{}, b...))
	return len(b), nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePort) SetBaud(int) error { return nil }

// echoFramer is a minimal framer.Framer test double: one event per OnBytes
// call, echoing the bytes as the frame, always successful SendTelegram.
type echoFramer struct{}

func (echoFramer) OnBytes(b []byte) []framer.Event {
	return []framer.Event{{Frame: append([]byte{}, b...)}}
}
func (echoFramer) Reset()                                       {}
func (echoFramer) SetLinkModes(linkmode.Set) error              { return nil }
func (echoFramer) CanSetLinkModes(linkmode.Set) bool            { return true }
func (echoFramer) CheckStatus() error                           { return nil }
func (echoFramer) Close() error                                 { return nil }
func (echoFramer) SendTelegram(framer.StartsWith, []byte) error { return nil }

func TestManagerAddRemoveDevice(t *testing.T) {
	var m = NewManager(nil)
	var dev = NewBusDevice("bus1", devicespec.IM871A, &fakePort{}, echoFramer{}, nil)
	m.AddDevice(dev)
	assert.Equal(t, 1, m.Count())

	var got, ok = m.Device("bus1")
	require.True(t, ok)
	assert.Equal(t, dev, got)

	m.RemoveDevice("bus1")
	assert.Equal(t, 0, m.Count())
}

func TestManagerRunDeviceForwardsTelegrams(t *testing.T) {
	var port = &fakePort{chunks: [][]byte{{0x01, 0x02}, {0x01, 0x02}, {0x03}}}
	var dev = NewBusDevice("bus1", devicespec.RAWTTY, port, echoFramer{}, nil)

	var received [][]byte
	var m = NewManager(func(about telegram.About, frame []byte) {
		received = append(received, frame)
	})

	var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var err = m.RunDevice(ctx, dev)
	assert.ErrorIs(t, err, io.EOF)

	// Dedupe is disabled by default (NewManager's default FrameCache), so
	// the repeated {0x01,0x02} chunk and the unique {0x03} all pass through.
	assert.Len(t, received, 3)
}

func TestManagerRunDeviceDedupesWhenEnabled(t *testing.T) {
	var port = &fakePort{chunks: [][]byte{{0x01, 0x02}, {0x01, 0x02}, {0x03}}}
	var dev = NewBusDevice("bus1", devicespec.RAWTTY, port, echoFramer{}, nil)

	var received [][]byte
	var m = NewManager(func(about telegram.About, frame []byte) {
		received = append(received, frame)
	}, WithDedupe(dedupe.NewFrameCache(true)))

	var ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = m.RunDevice(ctx, dev)

	assert.Len(t, received, 2)
}

func TestManagerRunDeviceMarksNotWorkingOnReadError(t *testing.T) {
	var port = &fakePort{closed: true}
	var dev = NewBusDevice("bus1", devicespec.RAWTTY, port, echoFramer{}, nil)
	var m = NewManager(nil)

	var err = m.RunDevice(context.Background(), dev)
	assert.Error(t, err)

	var working, _, _, _, _ = dev.snapshot()
	assert.False(t, working)
}

func TestManagerQueueAndDrainSendSkipsOversizedAndUnknownBus(t *testing.T) {
	var m = NewManager(nil)
	var dev = NewBusDevice("bus1", devicespec.MBUSMASTER, &fakePort{}, echoFramer{}, nil)
	m.AddDevice(dev)

	m.QueueSend(SendBusContent{Bus: "bus1", StartsWith: framer.CField, HexContent: "4401"})
	m.QueueSend(SendBusContent{Bus: "bus1", StartsWith: framer.CField, HexContent: strings.Repeat("44", 251)})
	m.QueueSend(SendBusContent{Bus: "nope", StartsWith: framer.CField, HexContent: "4401"})

	var skipped []string
	m.DrainSendQueue(func(reason string, c SendBusContent) {
		skipped = append(skipped, reason)
	})
	assert.Equal(t, []string{"content too long", "unknown bus alias"}, skipped)
}
