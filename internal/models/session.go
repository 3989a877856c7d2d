package models

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// SessionRecord is one summarized sampling cycle. ID is assigned by the store
// on insert; every other field is fixed when the record is built.
type SessionRecord struct {
	ID                     int64     `json:"id"`
	DominantApp            string    `json:"dominant_app"`
	ActiveSeconds          int64     `json:"active_seconds"`
	RiskLevel              RiskLevel `json:"risk_level"`
	UnlocksLastHour        int       `json:"unlocks_last_hour"`
	NotificationsLast30Min int       `json:"notifications_last_30_min"`
	IsNight                bool      `json:"is_night"`
	Category               string    `json:"category"`
	Timestamp              time.Time `json:"timestamp"`
}

// TimestampMillis returns the record time as epoch milliseconds, the precision
// it is persisted with.
func (s SessionRecord) TimestampMillis() int64 {
	return s.Timestamp.UnixMilli()
}
