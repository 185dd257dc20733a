package relay

import (
	"errors"
	"net/http"
	"strconv"

	"cdr.dev/slog"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"

	"focustrack/internal/api"
)

type syncHandler struct {
	Store *Store
	Clock quartz.Clock
	Log   slog.Logger
}

func (h *syncHandler) RegisterDevice(c *gin.Context) {
	var body api.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.DeviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	}

	created, err := h.Store.UpsertDevice(c.Request.Context(), body.DeviceID, body.Name)
	if err != nil {
		h.Log.Error(c.Request.Context(), "register device", slog.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, api.RegisterDeviceResponse{DeviceID: body.DeviceID, Name: body.Name})
}

func (h *syncHandler) Push(c *gin.Context) {
	var body api.PushRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.DeviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	}
	ctx := c.Request.Context()

	for _, app := range body.Apps {
		if app.BundleID == "" {
			continue
		}
		if err := h.Store.UpsertApp(ctx, app.BundleID, app.AppName); err != nil {
			h.Log.Error(ctx, "upsert app", slog.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}
	for _, tag := range body.Tags {
		if tag.Name == "" {
			continue
		}
		if err := h.Store.UpsertTag(ctx, tag.Name, tag.ColorLight, tag.ColorDark); err != nil {
			h.Log.Error(ctx, "upsert tag", slog.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}

	synced := 0
	for _, entry := range body.Logs {
		appID, err := h.Store.AppIDByBundle(ctx, entry.BundleID)
		if errors.Is(err, ErrNotFound) {
			// Unresolvable app: drop the log instead of failing the batch.
			continue
		}
		if err != nil {
			h.Log.Error(ctx, "resolve app", slog.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		var tagID *int64
		if entry.TagName != nil {
			id, err := h.Store.TagIDByName(ctx, *entry.TagName)
			if err == nil {
				tagID = &id
			} else if !errors.Is(err, ErrNotFound) {
				h.Log.Error(ctx, "resolve tag", slog.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
		}
		inserted, err := h.Store.InsertLog(ctx, LogRow{
			DeviceID:    body.DeviceID,
			ClientLogID: entry.ClientLogID,
			AppID:       appID,
			WindowTitle: entry.WindowTitle,
			StartTime:   entry.StartTime,
			EndTime:     entry.EndTime,
			IsIdle:      entry.IsIdle != 0,
			TagID:       tagID,
		})
		if err != nil {
			h.Log.Error(ctx, "insert log", slog.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if inserted {
			synced++
		}
	}

	if err := h.Store.TouchDevice(ctx, body.DeviceID, epochSeconds(h.Clock.Now())); err != nil {
		h.Log.Error(ctx, "touch device", slog.Error(err))
	}
	c.JSON(http.StatusOK, api.PushResponse{SyncedCount: synced})
}

func (h *syncHandler) Pull(c *gin.Context) {
	deviceID := c.Query("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	}
	since, err := strconv.ParseFloat(c.DefaultQuery("since", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
		return
	}

	logs, err := h.Store.LogsSince(c.Request.Context(), deviceID, since)
	if err != nil {
		h.Log.Error(c.Request.Context(), "query logs", slog.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, api.PullResponse{
		Logs:       logs,
		ServerTime: epochSeconds(h.Clock.Now()),
	})
}
