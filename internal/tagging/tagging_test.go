package tagging

import (
	"testing"

	"focustrack/internal/model"
)

func i64(v int64) *int64 { return &v }

func TestResolvePrefersSessionOverride(t *testing.T) {
	work := model.Tag{ID: 1, Name: "work"}
	chill := model.Tag{ID: 2, Name: "chill"}
	cache := NewCache([]model.Tag{work, chill})

	app := model.AppInfo{ID: 10, DefaultTagID: i64(1)}

	got := cache.Resolve(model.Session{TagID: i64(2)}, app)
	if got == nil || got.Name != "chill" {
		t.Fatalf("expected session override chill, got %+v", got)
	}

	got = cache.Resolve(model.Session{}, app)
	if got == nil || got.Name != "work" {
		t.Fatalf("expected app default work, got %+v", got)
	}

	got = cache.Resolve(model.Session{}, model.AppInfo{})
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestResolveIgnoresDanglingIDs(t *testing.T) {
	cache := NewCache([]model.Tag{{ID: 1, Name: "work"}})

	// A stale override falls through to the app default.
	got := cache.Resolve(model.Session{TagID: i64(99)}, model.AppInfo{DefaultTagID: i64(1)})
	if got == nil || got.Name != "work" {
		t.Fatalf("expected fallback to work, got %+v", got)
	}

	if got := cache.Resolve(model.Session{TagID: i64(99)}, model.AppInfo{DefaultTagID: i64(98)}); got != nil {
		t.Fatalf("expected nil for dangling ids, got %+v", got)
	}
}

func TestByID(t *testing.T) {
	cache := NewCache([]model.Tag{{ID: 1, Name: "work"}})
	if tag, ok := cache.ByID(1); !ok || tag.Name != "work" {
		t.Fatalf("expected work, got %+v ok=%v", tag, ok)
	}
	if _, ok := cache.ByID(2); ok {
		t.Fatal("expected miss for unknown id")
	}
}
