// Package api holds the wire types shared by the sync client and the relay.
// Times travel as epoch seconds and is_idle as 0/1, matching what every
// deployed client already emits.
package api

type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

type RegisterDeviceResponse struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

type PushApp struct {
	BundleID string `json:"bundle_id"`
	AppName  string `json:"app_name"`
}

type PushTag struct {
	Name       string `json:"name"`
	ColorLight string `json:"color_light"`
	ColorDark  string `json:"color_dark"`
}

type PushLog struct {
	ClientLogID int64   `json:"client_log_id"`
	BundleID    string  `json:"bundle_id"`
	WindowTitle *string `json:"window_title,omitempty"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	IsIdle      int     `json:"is_idle"`
	TagName     *string `json:"tag_name,omitempty"`
}

type PushRequest struct {
	DeviceID string    `json:"device_id"`
	Apps     []PushApp `json:"apps"`
	Tags     []PushTag `json:"tags"`
	Logs     []PushLog `json:"logs"`
}

type PushResponse struct {
	SyncedCount int `json:"synced_count"`
}

type PullLog struct {
	DeviceID    string  `json:"device_id"`
	DeviceName  string  `json:"device_name"`
	AppName     string  `json:"app_name"`
	BundleID    string  `json:"bundle_id"`
	WindowTitle *string `json:"window_title,omitempty"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	IsIdle      int     `json:"is_idle"`
	TagName     *string `json:"tag_name,omitempty"`
}

type PullResponse struct {
	Logs       []PullLog `json:"logs"`
	ServerTime float64   `json:"server_time"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
