package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cdr.dev/slog"
	"github.com/coder/quartz"

	"focustrack/internal/api"
	"focustrack/internal/store"
)

func newSyncStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "focustrack.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		st.Close() //nolint:errcheck
	})
	if err := store.ApplyMigrations(ctx, st.DB()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return st
}

func seedSessions(t *testing.T, st *store.Store, n int) {
	t.Helper()
	ctx := context.Background()
	tag, err := st.CreateTag(ctx, "work", "#fff", "#000")
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	appID, err := st.UpsertApp(ctx, "com.example.editor", "Editor", nil)
	if err != nil {
		t.Fatalf("upsert app: %v", err)
	}
	if err := st.SetDefaultTag(ctx, appID, &tag.ID); err != nil {
		t.Fatalf("set default tag: %v", err)
	}
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		start := base.Add(time.Duration(i) * time.Minute)
		if _, err := st.InsertSession(ctx, appID, nil, start, start.Add(30*time.Second), false); err != nil {
			t.Fatalf("insert session: %v", err)
		}
	}
}

// fakeRelay records the request sequence and serves canned responses.
type fakeRelay struct {
	mu          sync.Mutex
	paths       []string
	healthCode  int
	pushCode    int
	lastPush    api.PushRequest
	lastSince   string
	pullLogs    []api.PullLog
	serverTime  float64
	syncedCount int
}

func (f *fakeRelay) record(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *fakeRelay) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func (f *fakeRelay) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		f.record("/health")
		w.WriteHeader(f.healthCode)
	})
	mux.HandleFunc("/api/v1/devices", func(w http.ResponseWriter, r *http.Request) {
		f.record("/api/v1/devices")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(api.RegisterDeviceResponse{}) //nolint:errcheck
	})
	mux.HandleFunc("/api/v1/sync/push", func(w http.ResponseWriter, r *http.Request) {
		f.record("/api/v1/sync/push")
		if f.pushCode != http.StatusOK {
			w.WriteHeader(f.pushCode)
			return
		}
		f.mu.Lock()
		json.NewDecoder(r.Body).Decode(&f.lastPush) //nolint:errcheck
		f.mu.Unlock()
		json.NewEncoder(w).Encode(api.PushResponse{SyncedCount: f.syncedCount}) //nolint:errcheck
	})
	mux.HandleFunc("/api/v1/sync/pull", func(w http.ResponseWriter, r *http.Request) {
		f.record("/api/v1/sync/pull")
		f.mu.Lock()
		f.lastSince = r.URL.Query().Get("since")
		f.mu.Unlock()
		json.NewEncoder(w).Encode(api.PullResponse{Logs: f.pullLogs, ServerTime: f.serverTime}) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, st *store.Store, baseURL string) *Client {
	t.Helper()
	client, err := New(context.Background(), st, Config{
		BaseURL:        baseURL,
		DeviceName:     "Test Device",
		Interval:       time.Minute,
		StartupDelay:   0,
		ProbeTimeout:   time.Second,
		RequestTimeout: time.Second,
		BatchLimit:     100,
	}, quartz.NewReal(), slog.Logger{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCyclePushesAndPulls(t *testing.T) {
	ctx := context.Background()
	st := newSyncStore(t)
	seedSessions(t, st, 2)

	title := "~/src"
	relay := &fakeRelay{
		healthCode:  http.StatusOK,
		pushCode:    http.StatusOK,
		syncedCount: 2,
		serverTime:  1000.5,
		pullLogs: []api.PullLog{{
			DeviceID:    "device-b",
			DeviceName:  "Laptop",
			AppName:     "Terminal",
			BundleID:    "com.example.terminal",
			WindowTitle: &title,
			StartTime:   500,
			EndTime:     530,
			IsIdle:      0,
		}},
	}
	srv := relay.server(t)
	client := newTestClient(t, st, srv.URL)

	synced := false
	client.OnSynced(func() { synced = true })
	client.Cycle(ctx)

	want := []string{"/health", "/api/v1/devices", "/api/v1/sync/push", "/api/v1/sync/pull"}
	got := relay.requests()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if !synced {
		t.Fatal("expected OnSynced callback")
	}

	if relay.lastPush.DeviceID != client.DeviceID() {
		t.Fatalf("unexpected push device id: %q", relay.lastPush.DeviceID)
	}
	if len(relay.lastPush.Logs) != 2 {
		t.Fatalf("expected 2 pushed logs, got %d", len(relay.lastPush.Logs))
	}
	// One app and one tag despite two sessions referencing them.
	if len(relay.lastPush.Apps) != 1 || relay.lastPush.Apps[0].BundleID != "com.example.editor" {
		t.Fatalf("unexpected pushed apps: %+v", relay.lastPush.Apps)
	}
	if len(relay.lastPush.Tags) != 1 || relay.lastPush.Tags[0].Name != "work" {
		t.Fatalf("unexpected pushed tags: %+v", relay.lastPush.Tags)
	}
	if relay.lastPush.Logs[0].TagName == nil || *relay.lastPush.Logs[0].TagName != "work" {
		t.Fatalf("expected effective tag on log, got %+v", relay.lastPush.Logs[0])
	}

	unsynced, err := st.UnsyncedSessions(ctx, 100)
	if err != nil {
		t.Fatalf("unsynced sessions: %v", err)
	}
	if len(unsynced) != 0 {
		t.Fatalf("expected everything synced, got %d", len(unsynced))
	}

	remote, err := st.RemoteSessions(ctx, time.Time{})
	if err != nil {
		t.Fatalf("remote sessions: %v", err)
	}
	if len(remote) != 1 || remote[0].DeviceName != "Laptop" {
		t.Fatalf("unexpected remote sessions: %+v", remote)
	}

	cursor, err := st.Setting(ctx, "last_pull_time")
	if err != nil {
		t.Fatalf("fetch cursor: %v", err)
	}
	if cursor != "1000.5" {
		t.Fatalf("expected cursor 1000.5, got %q", cursor)
	}
}

func TestSecondCycleSendsCursorAndSkipsEmptyPush(t *testing.T) {
	ctx := context.Background()
	st := newSyncStore(t)
	seedSessions(t, st, 1)

	relay := &fakeRelay{healthCode: http.StatusOK, pushCode: http.StatusOK, syncedCount: 1, serverTime: 2000}
	srv := relay.server(t)
	client := newTestClient(t, st, srv.URL)

	client.Cycle(ctx)
	client.Cycle(ctx)

	pushes := 0
	for _, path := range relay.requests() {
		if path == "/api/v1/sync/push" {
			pushes++
		}
	}
	if pushes != 1 {
		t.Fatalf("expected 1 push, got %d", pushes)
	}
	if relay.lastSince != "2000" {
		t.Fatalf("expected since=2000, got %q", relay.lastSince)
	}
}

func TestProbeFailureAbortsCycle(t *testing.T) {
	ctx := context.Background()
	st := newSyncStore(t)
	seedSessions(t, st, 1)

	relay := &fakeRelay{healthCode: http.StatusInternalServerError}
	srv := relay.server(t)
	client := newTestClient(t, st, srv.URL)

	client.Cycle(ctx)

	for _, path := range relay.requests() {
		if path != "/health" {
			t.Fatalf("unexpected request %s after failed probe", path)
		}
	}
	unsynced, err := st.UnsyncedSessions(ctx, 100)
	if err != nil {
		t.Fatalf("unsynced sessions: %v", err)
	}
	if len(unsynced) != 1 {
		t.Fatalf("expected session still unsynced, got %d", len(unsynced))
	}
}

func TestPushFailureLeavesSessionsUnsynced(t *testing.T) {
	ctx := context.Background()
	st := newSyncStore(t)
	seedSessions(t, st, 1)

	relay := &fakeRelay{healthCode: http.StatusOK, pushCode: http.StatusBadGateway}
	srv := relay.server(t)
	client := newTestClient(t, st, srv.URL)

	client.Cycle(ctx)

	for _, path := range relay.requests() {
		if path == "/api/v1/sync/pull" {
			t.Fatal("expected pull skipped after failed push")
		}
	}
	unsynced, err := st.UnsyncedSessions(ctx, 100)
	if err != nil {
		t.Fatalf("unsynced sessions: %v", err)
	}
	if len(unsynced) != 1 {
		t.Fatalf("expected session still unsynced, got %d", len(unsynced))
	}
}
