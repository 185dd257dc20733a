package store

import (
	"context"
	"testing"
	"time"

	"focustrack/internal/model"
)

type summaryFixture struct {
	s       *Store
	work    model.Tag
	chill   model.Tag
	editor  int64
	browser int64
}

func newSummaryFixture(t *testing.T) summaryFixture {
	t.Helper()
	ctx := context.Background()
	s := newTestStore(t)

	work, err := s.CreateTag(ctx, "work", "#fff", "#000")
	if err != nil {
		t.Fatalf("create work: %v", err)
	}
	chill, err := s.CreateTag(ctx, "chill", "#eee", "#111")
	if err != nil {
		t.Fatalf("create chill: %v", err)
	}
	editor, err := s.UpsertApp(ctx, "com.example.editor", "Editor", nil)
	if err != nil {
		t.Fatalf("upsert editor: %v", err)
	}
	browser, err := s.UpsertApp(ctx, "com.example.browser", "Browser", nil)
	if err != nil {
		t.Fatalf("upsert browser: %v", err)
	}
	if err := s.SetDefaultTag(ctx, editor, &work.ID); err != nil {
		t.Fatalf("set default tag: %v", err)
	}
	return summaryFixture{s: s, work: work, chill: chill, editor: editor, browser: browser}
}

func (f summaryFixture) insert(t *testing.T, appID int64, start time.Time, seconds int, isIdle bool, tagID *int64) {
	t.Helper()
	ctx := context.Background()
	id, err := f.s.InsertSession(ctx, appID, nil, start, start.Add(time.Duration(seconds)*time.Second), isIdle)
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
	if tagID != nil {
		if err := f.s.SetSessionTag(ctx, id, tagID); err != nil {
			t.Fatalf("set session tag: %v", err)
		}
	}
}

func findSummary(summaries []model.TagSummary, name string) (model.TagSummary, bool) {
	for _, summary := range summaries {
		if summary.Name == name {
			return summary, true
		}
	}
	return model.TagSummary{}, false
}

func TestTagSummariesUseEffectiveTag(t *testing.T) {
	ctx := context.Background()
	f := newSummaryFixture(t)
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)

	// Editor inherits the work default; the browser override also lands in
	// work; the chill override opens its own bucket.
	f.insert(t, f.editor, base, 100, false, nil)
	f.insert(t, f.browser, base.Add(5*time.Minute), 30, false, &f.work.ID)
	f.insert(t, f.browser, base.Add(10*time.Minute), 50, false, &f.chill.ID)
	// Untagged and idle rows: only the untagged one may show up, as "none".
	f.insert(t, f.browser, base.Add(15*time.Minute), 20, false, nil)
	f.insert(t, f.editor, base.Add(20*time.Minute), 600, true, nil)
	// Outside the window.
	f.insert(t, f.editor, base.Add(24*time.Hour), 999, false, nil)

	summaries, err := f.s.TagSummaries(ctx, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("tag summaries: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 buckets, got %d: %+v", len(summaries), summaries)
	}
	work, ok := findSummary(summaries, "work")
	if !ok || work.Seconds != 130 {
		t.Fatalf("expected work=130, got %+v", work)
	}
	chill, ok := findSummary(summaries, "chill")
	if !ok || chill.Seconds != 50 {
		t.Fatalf("expected chill=50, got %+v", chill)
	}
	none, ok := findSummary(summaries, model.UntaggedName)
	if !ok || none.Seconds != 20 {
		t.Fatalf("expected none=20, got %+v", none)
	}
	if none.TagID != nil {
		t.Fatalf("expected nil tag id for none bucket, got %v", *none.TagID)
	}
}

func TestTagSummariesAttributeToStartBucket(t *testing.T) {
	ctx := context.Background()
	f := newSummaryFixture(t)
	base := time.Date(2025, 3, 10, 9, 50, 0, 0, time.Local)

	// Starts inside the window, ends past it: counts fully.
	f.insert(t, f.editor, base, 1200, false, nil)

	summaries, err := f.s.TagSummaries(ctx, base.Add(-50*time.Minute), base.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("tag summaries: %v", err)
	}
	work, ok := findSummary(summaries, "work")
	if !ok || work.Seconds != 1200 {
		t.Fatalf("expected work=1200, got %+v", work)
	}
}

func TestHourlyTagSummaries(t *testing.T) {
	ctx := context.Background()
	f := newSummaryFixture(t)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)

	h9 := day.Add(9 * time.Hour)
	h10 := day.Add(10 * time.Hour)
	f.insert(t, f.editor, h9, 1800, false, nil)
	f.insert(t, f.browser, h9.Add(35*time.Minute), 900, false, nil)
	f.insert(t, f.browser, h10, 1200, false, &f.chill.ID)
	// Previous day stays out.
	f.insert(t, f.editor, h9.AddDate(0, 0, -1), 600, false, nil)

	hours, err := f.s.HourlyTagSummaries(ctx, day)
	if err != nil {
		t.Fatalf("hourly summaries: %v", err)
	}

	work, ok := findSummary(hours[9], "work")
	if !ok || work.Seconds != 1800 {
		t.Fatalf("expected hour 9 work=1800, got %+v", hours[9])
	}
	none, ok := findSummary(hours[9], model.UntaggedName)
	if !ok || none.Seconds != 900 {
		t.Fatalf("expected hour 9 none=900, got %+v", hours[9])
	}
	chill, ok := findSummary(hours[10], "chill")
	if !ok || chill.Seconds != 1200 {
		t.Fatalf("expected hour 10 chill=1200, got %+v", hours[10])
	}
	if len(hours[11]) != 0 {
		t.Fatalf("expected empty hour 11, got %+v", hours[11])
	}
}

func TestDailyTagSummaries(t *testing.T) {
	ctx := context.Background()
	f := newSummaryFixture(t)
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)
	yesterday := today.AddDate(0, 0, -1)

	f.insert(t, f.editor, yesterday.Add(14*time.Hour), 3600, false, nil)
	f.insert(t, f.editor, today.Add(9*time.Hour), 1800, false, nil)

	days, err := f.s.DailyTagSummaries(ctx, yesterday, today.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("daily summaries: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if !days[0].Day.Equal(yesterday) || !days[1].Day.Equal(today) {
		t.Fatalf("unexpected day order: %v, %v", days[0].Day, days[1].Day)
	}
	work, ok := findSummary(days[0].Tags, "work")
	if !ok || work.Seconds != 3600 {
		t.Fatalf("expected yesterday work=3600, got %+v", days[0].Tags)
	}
	work, ok = findSummary(days[1].Tags, "work")
	if !ok || work.Seconds != 1800 {
		t.Fatalf("expected today work=1800, got %+v", days[1].Tags)
	}
}

func TestAppSummariesExcludeIdle(t *testing.T) {
	ctx := context.Background()
	f := newSummaryFixture(t)
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)

	f.insert(t, f.editor, base, 300, false, nil)
	f.insert(t, f.editor, base.Add(10*time.Minute), 60, false, nil)
	f.insert(t, f.browser, base.Add(20*time.Minute), 120, false, nil)
	f.insert(t, f.editor, base.Add(30*time.Minute), 900, true, nil)

	summaries, err := f.s.AppSummaries(ctx, base)
	if err != nil {
		t.Fatalf("app summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 apps, got %d", len(summaries))
	}
	if summaries[0].BundleID != "com.example.editor" || summaries[0].Seconds != 360 {
		t.Fatalf("expected editor=360 first, got %+v", summaries[0])
	}
	if summaries[1].BundleID != "com.example.browser" || summaries[1].Seconds != 120 {
		t.Fatalf("expected browser=120, got %+v", summaries[1])
	}
}
