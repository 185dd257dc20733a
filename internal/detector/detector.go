// Package detector decides whether the user is away from the machine or
// merely idle at it. Away is latched from system events (sleep, lock,
// screensaver, fast user switch); idle is sampled from the time since the
// last input, with an override for processes holding a media-playback
// power assertion.
package detector

import (
	"context"
	"sync"
	"time"

	"cdr.dev/slog"
)

type EventKind int

const (
	EventSleep EventKind = iota
	EventWake
	EventScreensSleep
	EventScreensWake
	EventLock
	EventUnlock
	EventScreensaverStart
	EventScreensaverStop
	EventSessionResigned
	EventSessionActive
)

func (k EventKind) String() string {
	switch k {
	case EventSleep:
		return "sleep"
	case EventWake:
		return "wake"
	case EventScreensSleep:
		return "screens_sleep"
	case EventScreensWake:
		return "screens_wake"
	case EventLock:
		return "lock"
	case EventUnlock:
		return "unlock"
	case EventScreensaverStart:
		return "screensaver_start"
	case EventScreensaverStop:
		return "screensaver_stop"
	case EventSessionResigned:
		return "session_resigned"
	case EventSessionActive:
		return "session_active"
	}
	return "unknown"
}

// away reports whether the event marks the user as gone (true) or back
// (false).
func (k EventKind) away() bool {
	switch k {
	case EventSleep, EventScreensSleep, EventLock, EventScreensaverStart, EventSessionResigned:
		return true
	}
	return false
}

// SystemEventSource delivers away-relevant system events. Implementations
// are platform-specific; the handler may be called from any goroutine.
type SystemEventSource interface {
	Subscribe(func(EventKind))
}

// NopEventSource never delivers events, for platforms without a usable feed.
type NopEventSource struct{}

func (NopEventSource) Subscribe(func(EventKind)) {}

// InputMonitor reports the seconds elapsed since the last keyboard or mouse
// input.
type InputMonitor interface {
	SecondsSinceLastInput() (float64, error)
}

// NopInputMonitor always reports fresh input, so idle never triggers.
type NopInputMonitor struct{}

func (NopInputMonitor) SecondsSinceLastInput() (float64, error) { return 0, nil }

// AssertionChecker reports whether a process holds a power assertion that
// should suppress the idle state, such as video playback.
type AssertionChecker interface {
	HasMediaAssertion(pid int) bool
}

// NopAssertionChecker never suppresses idle.
type NopAssertionChecker struct{}

func (NopAssertionChecker) HasMediaAssertion(int) bool { return false }

type Detector struct {
	input         InputMonitor
	assertions    AssertionChecker
	idleThreshold time.Duration
	log           slog.Logger

	mu           sync.Mutex
	away         bool
	onAwayChange func(bool)
}

func New(events SystemEventSource, input InputMonitor, assertions AssertionChecker, idleThreshold time.Duration, log slog.Logger) *Detector {
	d := &Detector{
		input:         input,
		assertions:    assertions,
		idleThreshold: idleThreshold,
		log:           log,
	}
	events.Subscribe(d.handle)
	return d
}

// OnAwayChange registers the callback fired on away transitions. It fires
// only when the latched value actually flips.
func (d *Detector) OnAwayChange(fn func(bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onAwayChange = fn
}

func (d *Detector) IsAway() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.away
}

// IsIdle samples the input gap against the threshold. A front process
// holding a media assertion keeps the user counted as active regardless of
// input. Only meaningful while not away.
func (d *Detector) IsIdle(frontPID int) bool {
	seconds, err := d.input.SecondsSinceLastInput()
	if err != nil {
		d.log.Warn(context.Background(), "read input gap", slog.Error(err))
		return false
	}
	if seconds < d.idleThreshold.Seconds() {
		return false
	}
	if d.assertions != nil && d.assertions.HasMediaAssertion(frontPID) {
		return false
	}
	return true
}

func (d *Detector) handle(kind EventKind) {
	next := kind.away()

	d.mu.Lock()
	changed := d.away != next
	d.away = next
	fn := d.onAwayChange
	d.mu.Unlock()

	if changed {
		d.log.Debug(context.Background(), "away state changed",
			slog.F("event", kind.String()), slog.F("away", next))
		if fn != nil {
			fn(next)
		}
	}
}
