package services

import "neuropulse/internal/models"

const (
	highRiskMinutes   = 180
	mediumRiskMinutes = 120
)

// ActiveMinutes truncates seconds to whole minutes.
func ActiveMinutes(activeSeconds int64) int64 {
	return activeSeconds / 60
}

// ClassifyRisk maps active minutes to a tier. Each call is independent of
// earlier cycles.
func ClassifyRisk(activeMinutes int64) models.RiskLevel {
	switch {
	case activeMinutes > highRiskMinutes:
		return models.RiskHigh
	case activeMinutes > mediumRiskMinutes:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
