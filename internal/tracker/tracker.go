// Package tracker turns periodic focus and idleness samples into contiguous
// sessions in the local store.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"cdr.dev/slog"
	"github.com/coder/quartz"

	"focustrack/internal/security"
	"focustrack/internal/store"
)

// ErrFocusUnavailable marks a tick where the frontmost window could not be
// resolved; the tracker leaves the current session untouched.
var ErrFocusUnavailable = errors.New("focused window unavailable")

// Idle sessions are recorded against a synthetic app so they aggregate like
// any other.
const (
	IdleBundleID = "com.focustrack.idle"
	IdleAppName  = "Idle"
)

// Focus describes the frontmost window at one sample.
type Focus struct {
	BundleID    string
	AppName     string
	WindowTitle *string
	PID         int
	IconPNG     []byte
}

type FocusSource interface {
	FrontmostWindow(ctx context.Context) (Focus, error)
}

// IdleMonitor is the detector surface the tracker consumes.
type IdleMonitor interface {
	IsAway() bool
	IsIdle(frontPID int) bool
	OnAwayChange(func(bool))
}

type Tracker struct {
	store    *store.Store
	focus    FocusSource
	idle     IdleMonitor
	clock    quartz.Clock
	interval time.Duration
	log      slog.Logger

	mu            sync.Mutex
	currentID     int64
	currentBundle string
	currentTitle  *string
	inIdle        bool
	onUpdate      func()
}

func New(st *store.Store, focus FocusSource, idle IdleMonitor, clock quartz.Clock, interval time.Duration, log slog.Logger) *Tracker {
	t := &Tracker{
		store:    st,
		focus:    focus,
		idle:     idle,
		clock:    clock,
		interval: interval,
		log:      log,
	}
	// Going away closes the session immediately so away time never bleeds
	// into it.
	idle.OnAwayChange(func(away bool) {
		if !away {
			return
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		t.finalizeLocked(context.Background(), t.clock.Now())
		t.inIdle = false
	})
	return t
}

// OnUpdate registers a callback fired after every session open.
func (t *Tracker) OnUpdate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUpdate = fn
}

// Run ticks once immediately and then on every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context) {
	t.Tick(ctx, t.clock.Now())
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(ctx, t.clock.Now())
		}
	}
}

// Tick advances the session state machine by one sample taken at now.
// Persistence failures are logged and the tracker keeps going.
func (t *Tracker) Tick(ctx context.Context, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.idle.IsAway() {
		return
	}

	focus, focusErr := t.focus.FrontmostWindow(ctx)
	// Scrub before the title touches comparison or storage, so a redacted
	// title still extends its own session.
	if focus.WindowTitle != nil {
		clean := security.RedactTitle(*focus.WindowTitle)
		focus.WindowTitle = &clean
	}

	if t.idle.IsIdle(focus.PID) {
		if !t.inIdle {
			t.finalizeLocked(ctx, now)
			t.inIdle = true
			t.openLocked(ctx, Focus{BundleID: IdleBundleID, AppName: IdleAppName}, now, true)
		} else {
			t.extendLocked(ctx, now)
		}
		return
	}

	if t.inIdle {
		t.finalizeLocked(ctx, now)
		t.inIdle = false
	}

	if focusErr != nil {
		if !errors.Is(focusErr, ErrFocusUnavailable) {
			t.log.Warn(ctx, "query focused window", slog.Error(focusErr))
		}
		return
	}

	if t.currentID != 0 && focus.BundleID == t.currentBundle && equalTitle(focus.WindowTitle, t.currentTitle) {
		t.extendLocked(ctx, now)
		return
	}
	t.finalizeLocked(ctx, now)
	t.openLocked(ctx, focus, now, false)
}

// CurrentSessionID returns the open session's row id, or 0 when none is
// open.
func (t *Tracker) CurrentSessionID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentID
}

func (t *Tracker) openLocked(ctx context.Context, f Focus, now time.Time, isIdle bool) {
	appID, err := t.store.UpsertApp(ctx, f.BundleID, f.AppName, f.IconPNG)
	if err != nil {
		t.log.Error(ctx, "upsert app", slog.F("bundle_id", f.BundleID), slog.Error(err))
		return
	}
	id, err := t.store.InsertSession(ctx, appID, f.WindowTitle, now, now, isIdle)
	if err != nil {
		t.log.Error(ctx, "open session", slog.F("bundle_id", f.BundleID), slog.Error(err))
		return
	}
	t.currentID = id
	t.currentBundle = f.BundleID
	t.currentTitle = f.WindowTitle
	if t.onUpdate != nil {
		t.onUpdate()
	}
}

func (t *Tracker) extendLocked(ctx context.Context, now time.Time) {
	if t.currentID == 0 {
		return
	}
	if err := t.store.ExtendSession(ctx, t.currentID, now); err != nil {
		t.log.Error(ctx, "extend session", slog.F("session_id", t.currentID), slog.Error(err))
	}
}

func (t *Tracker) finalizeLocked(ctx context.Context, now time.Time) {
	t.extendLocked(ctx, now)
	t.currentID = 0
	t.currentBundle = ""
	t.currentTitle = nil
}

func equalTitle(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
