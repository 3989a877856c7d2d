package models

import "time"

// UsageEntry is one row returned by the statistics source: total foreground
// time of an application inside the queried window.
type UsageEntry struct {
	AppID            string `json:"app_id"`
	ForegroundMillis int64  `json:"foreground_ms"`
}

// UsageInterval is a foreground interval reported by the device agent.
type UsageInterval struct {
	AppID            string    `json:"app_id"`
	ForegroundMillis int64     `json:"foreground_ms"`
	EndedAt          time.Time `json:"ended_at"`
}
