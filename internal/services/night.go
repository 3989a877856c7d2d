package services

import "time"

// NightWindow is a fixed local-time interval [StartHour, EndHour). When
// StartHour > EndHour the interval wraps midnight. Equal hours never match.
type NightWindow struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

func DefaultNightWindow() NightWindow {
	return NightWindow{StartHour: 22, EndHour: 6, Location: time.Local}
}

func (w NightWindow) IsNight(ts time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	hour := ts.In(loc).Hour()

	switch {
	case w.StartHour == w.EndHour:
		return false
	case w.StartHour > w.EndHour:
		return hour >= w.StartHour || hour < w.EndHour
	default:
		return hour >= w.StartHour && hour < w.EndHour
	}
}
