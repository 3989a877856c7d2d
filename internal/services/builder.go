package services

import (
	"time"

	"neuropulse/internal/models"
)

// SessionInputs is everything one record is built from.
type SessionInputs struct {
	Summary       UsageSummary
	Risk          models.RiskLevel
	Unlocks       int
	Notifications int
	Category      string
	IsNight       bool
	Timestamp     time.Time
}

// BuildSession composes a complete record. The timestamp is kept at
// millisecond precision, the precision it is persisted with.
func BuildSession(in SessionInputs) models.SessionRecord {
	return models.SessionRecord{
		DominantApp:            in.Summary.DominantApp,
		ActiveSeconds:          in.Summary.ActiveSeconds,
		RiskLevel:              in.Risk,
		UnlocksLastHour:        nonNegative(in.Unlocks),
		NotificationsLast30Min: nonNegative(in.Notifications),
		IsNight:                in.IsNight,
		Category:               in.Category,
		Timestamp:              time.UnixMilli(in.Timestamp.UnixMilli()).UTC(),
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
