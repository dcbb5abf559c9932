// Package alarm defines the bus manager's alarm taxonomy and the sink trait
// alarms are emitted through. A silent default lets tests observe device
// lifecycle behavior without mocking a real sink.
package alarm

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Kind enumerates the alarm taxonomy.
type Kind int

const (
	SpecifiedDeviceNotFound Kind = iota
	DeviceFailure
	DeviceInactivity
	RegularResetFailure
)

func (k Kind) String() string {
	switch k {
	case SpecifiedDeviceNotFound:
		return "SpecifiedDeviceNotFound"
	case DeviceFailure:
		return "DeviceFailure"
	case DeviceInactivity:
		return "DeviceInactivity"
	case RegularResetFailure:
		return "RegularResetFailure"
	default:
		return "unknown"
	}
}

// Alarm is one raised condition. Context identifies the distinct thing the
// alarm is about (typically a bus alias), used for once-per-minute throttling.
type Alarm struct {
	Kind    Kind
	Context string
	Message string
}

func (a Alarm) String() string {
	return fmt.Sprintf("%s[%s]: %s", a.Kind, a.Context, a.Message)
}

// Sink receives raised alarms.
type Sink interface {
	Raise(a Alarm)
}

// NoopSink discards every alarm. The silent default.
type NoopSink struct{}

func (NoopSink) Raise(Alarm) {}

// LogSink routes alarms to a structured logger (github.com/charmbracelet/log)
// instead of, or in addition to, a monitoring sink; every alarm is logged at
// Warn level with its kind and context as fields so the taxonomy survives
// log aggregation.
type LogSink struct {
	Logger *log.Logger
}

// NewLogSink wraps logger (log.Default() if nil) as an alarm.Sink.
func NewLogSink(logger *log.Logger) LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return LogSink{Logger: logger}
}

func (s LogSink) Raise(a Alarm) {
	s.Logger.Warn("alarm raised", "kind", a.Kind.String(), "context", a.Context, "message", a.Message)
}

// Throttled wraps sink so that at most one alarm per distinct (kind, context)
// pair passes through per minute, per spec §6.5.
type Throttled struct {
	sink   Sink
	window time.Duration

	mu   sync.Mutex
	last map[Kind]map[string]time.Time
}

// NewThrottled wraps sink with the default one-per-minute throttle.
func NewThrottled(sink Sink) *Throttled {
	return &Throttled{sink: sink, window: time.Minute, last: make(map[Kind]map[string]time.Time)}
}

func (t *Throttled) Raise(a Alarm) {
	var now = time.Now()
	t.mu.Lock()
	var byContext = t.last[a.Kind]
	if byContext == nil {
		byContext = make(map[string]time.Time)
		t.last[a.Kind] = byContext
	}
	var prev, seen = byContext[a.Context]
	if seen && now.Sub(prev) < t.window {
		t.mu.Unlock()
		return
	}
	byContext[a.Context] = now
	t.mu.Unlock()

	t.sink.Raise(a)
}
