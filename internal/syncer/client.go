// Package syncer pushes local sessions to the relay and pulls other
// devices' sessions back, on a fixed cycle.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cdr.dev/slog"
	"github.com/coder/quartz"

	"focustrack/internal/api"
	"focustrack/internal/model"
	"focustrack/internal/store"
)

const lastPullTimeKey = "last_pull_time"

type Config struct {
	BaseURL        string
	DeviceName     string
	Interval       time.Duration
	StartupDelay   time.Duration
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
	BatchLimit     int
}

type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	message := strings.TrimSpace(e.Message)
	if message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, message)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

type Client struct {
	store      *store.Store
	cfg        Config
	deviceID   string
	httpClient *http.Client
	clock      quartz.Clock
	log        slog.Logger
	onSynced   func()
}

func New(ctx context.Context, st *store.Store, cfg Config, clock quartz.Clock, log slog.Logger) (*Client, error) {
	deviceID, err := st.DeviceID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve device id: %w", err)
	}
	return &Client{
		store:      st,
		cfg:        cfg,
		deviceID:   deviceID,
		httpClient: &http.Client{},
		clock:      clock,
		log:        log,
	}, nil
}

func (c *Client) DeviceID() string {
	return c.deviceID
}

// OnSynced registers a callback fired after every completed cycle.
func (c *Client) OnSynced(fn func()) {
	c.onSynced = fn
}

// Run waits out the startup delay, cycles once, and then cycles on every
// interval until ctx is done.
func (c *Client) Run(ctx context.Context) {
	if c.cfg.StartupDelay > 0 {
		timer := c.clock.NewTimer(c.cfg.StartupDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
	c.Cycle(ctx)
	ticker := c.clock.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cycle(ctx)
		}
	}
}

// Cycle runs probe, register, push, pull in order. A failed stage aborts the
// rest of the cycle; nothing already persisted is rolled back, and the next
// cycle starts from the durable cursors.
func (c *Client) Cycle(ctx context.Context) {
	if !c.probe(ctx) {
		return
	}
	if err := c.register(ctx); err != nil {
		c.log.Warn(ctx, "register device", slog.Error(err))
		return
	}
	if err := c.push(ctx); err != nil {
		c.log.Warn(ctx, "push sessions", slog.Error(err))
		return
	}
	if err := c.pull(ctx); err != nil {
		c.log.Warn(ctx, "pull sessions", slog.Error(err))
		return
	}
	if c.onSynced != nil {
		c.onSynced()
	}
}

// probe checks relay reachability with a short timeout. Failure is the
// normal offline case and stays silent.
func (c *Client) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return resp.StatusCode == http.StatusOK
}

func (c *Client) register(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v1/devices", nil, api.RegisterDeviceRequest{
		DeviceID: c.deviceID,
		Name:     c.cfg.DeviceName,
	})
	return err
}

func (c *Client) push(ctx context.Context) error {
	unsynced, err := c.store.UnsyncedSessions(ctx, c.cfg.BatchLimit)
	if err != nil {
		return err
	}
	if len(unsynced) == 0 {
		return nil
	}

	tags, err := c.store.Tags(ctx)
	if err != nil {
		return err
	}
	tagsByName := make(map[string]model.Tag, len(tags))
	for _, tag := range tags {
		tagsByName[tag.Name] = tag
	}

	req := api.PushRequest{
		DeviceID: c.deviceID,
		Apps:     make([]api.PushApp, 0),
		Tags:     make([]api.PushTag, 0),
		Logs:     make([]api.PushLog, 0, len(unsynced)),
	}
	ids := make([]int64, 0, len(unsynced))
	appsSeen := map[string]struct{}{}
	tagsSeen := map[string]struct{}{}
	for _, entry := range unsynced {
		if _, ok := appsSeen[entry.BundleID]; !ok {
			appsSeen[entry.BundleID] = struct{}{}
			req.Apps = append(req.Apps, api.PushApp{BundleID: entry.BundleID, AppName: entry.AppName})
		}
		if entry.TagName != nil {
			if _, ok := tagsSeen[*entry.TagName]; !ok {
				tagsSeen[*entry.TagName] = struct{}{}
				tag := tagsByName[*entry.TagName]
				req.Tags = append(req.Tags, api.PushTag{
					Name:       *entry.TagName,
					ColorLight: tag.ColorLight,
					ColorDark:  tag.ColorDark,
				})
			}
		}
		req.Logs = append(req.Logs, api.PushLog{
			ClientLogID: entry.ID,
			BundleID:    entry.BundleID,
			WindowTitle: entry.WindowTitle,
			StartTime:   epochSeconds(entry.StartTime),
			EndTime:     epochSeconds(entry.EndTime),
			IsIdle:      boolToInt(entry.IsIdle),
			TagName:     entry.TagName,
		})
		ids = append(ids, entry.ID)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/v1/sync/push", nil, req)
	if err != nil {
		return err
	}
	var resp api.PushResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode push response: %w", err)
	}
	if err := c.store.MarkSynced(ctx, ids); err != nil {
		return err
	}
	c.log.Info(ctx, "pushed sessions",
		slog.F("count", len(ids)), slog.F("accepted", resp.SyncedCount))
	return nil
}

func (c *Client) pull(ctx context.Context) error {
	since := 0.0
	if raw, err := c.store.Setting(ctx, lastPullTimeKey); err == nil {
		if v, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
			since = v
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	query := url.Values{}
	query.Set("device_id", c.deviceID)
	query.Set("since", strconv.FormatFloat(since, 'f', -1, 64))
	body, err := c.do(ctx, http.MethodGet, "/api/v1/sync/pull", query, nil)
	if err != nil {
		return err
	}
	var resp api.PullResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode pull response: %w", err)
	}

	for _, entry := range resp.Logs {
		if err := c.store.InsertRemoteSession(ctx, model.RemoteSession{
			DeviceID:    entry.DeviceID,
			DeviceName:  entry.DeviceName,
			AppName:     entry.AppName,
			BundleID:    entry.BundleID,
			WindowTitle: entry.WindowTitle,
			StartTime:   fromEpochSeconds(entry.StartTime),
			EndTime:     fromEpochSeconds(entry.EndTime),
			IsIdle:      entry.IsIdle != 0,
			TagName:     entry.TagName,
		}); err != nil {
			return err
		}
	}
	if len(resp.Logs) > 0 {
		c.log.Info(ctx, "pulled sessions", slog.F("count", len(resp.Logs)))
	}
	// The cursor advances only after every pulled row is durable, so a
	// failed cycle re-fetches instead of losing data.
	return c.store.SaveSetting(ctx, lastPullTimeKey, strconv.FormatFloat(resp.ServerTime, 'f', -1, 64))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	reqCtx := ctx
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}
	var reqBody io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = buf
	}
	req, err := http.NewRequestWithContext(reqCtx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		var er api.ErrorResponse
		if err := json.Unmarshal(payload, &er); err == nil && er.Error != "" {
			return nil, &RequestError{StatusCode: resp.StatusCode, Message: er.Error}
		}
		return nil, &RequestError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}
	return payload, nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func fromEpochSeconds(v float64) time.Time {
	return time.UnixMicro(int64(v * 1e6))
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
