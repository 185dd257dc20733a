package model

import "time"

// AppInfo is one observed application, keyed by its stable bundle identifier.
type AppInfo struct {
	ID           int64
	BundleID     string
	AppName      string
	DefaultTagID *int64
}

type Tag struct {
	ID         int64
	Name       string
	ColorLight string
	ColorDark  string
}

// Session is one contiguous stretch of focus on a single (app, window title)
// pair, or one contiguous stretch of idleness.
type Session struct {
	ID          int64
	AppID       int64
	WindowTitle *string
	StartTime   time.Time
	EndTime     time.Time
	IsIdle      bool
	TagID       *int64
	Synced      bool
}

// RemoteSession is a session pulled from the relay. Rows are denormalized:
// app and tag travel by name so devices never have to share local row ids.
type RemoteSession struct {
	ID          int64
	DeviceID    string
	DeviceName  string
	AppName     string
	BundleID    string
	WindowTitle *string
	StartTime   time.Time
	EndTime     time.Time
	IsIdle      bool
	TagName     *string
}

type Device struct {
	ID       string
	Name     string
	LastSync *time.Time
}

// UnsyncedSession is a local session joined with the columns the push
// payload needs.
type UnsyncedSession struct {
	Session
	BundleID string
	AppName  string
	TagName  *string
}

type AppSummary struct {
	AppID    int64
	BundleID string
	AppName  string
	Seconds  float64
}

// UntaggedName labels the summary bucket for sessions with no effective tag.
const UntaggedName = "none"

type TagSummary struct {
	TagID      *int64
	Name       string
	ColorLight string
	ColorDark  string
	Seconds    float64
}

type DailyTagSummary struct {
	Day  time.Time
	Tags []TagSummary
}

type TimelineKind string

const (
	TimelineLocal  TimelineKind = "local"
	TimelineRemote TimelineKind = "remote"
)

// TimelineEntry is either a local Session or a RemoteSession; exactly one of
// the two pointers is set, matching Kind.
type TimelineEntry struct {
	Kind   TimelineKind
	Local  *Session
	Remote *RemoteSession
}

func LocalEntry(s Session) TimelineEntry {
	return TimelineEntry{Kind: TimelineLocal, Local: &s}
}

func RemoteEntry(s RemoteSession) TimelineEntry {
	return TimelineEntry{Kind: TimelineRemote, Remote: &s}
}

func (e TimelineEntry) StartTime() time.Time {
	switch e.Kind {
	case TimelineLocal:
		return e.Local.StartTime
	case TimelineRemote:
		return e.Remote.StartTime
	}
	return time.Time{}
}
