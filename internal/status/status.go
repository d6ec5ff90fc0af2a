package status

import (
	"time"

	"pool-status-backend/config"
)

// Level is the three-tier availability classification shown to users.
type Level string

const (
	LevelHigh     Level = "high"
	LevelModerate Level = "moderate"
	LevelLow      Level = "low"
)

// Label returns the user-facing text for the level.
func (l Level) Label() string {
	switch l {
	case LevelHigh:
		return "High availability"
	case LevelModerate:
		return "Moderate availability"
	default:
		return "Low availability"
	}
}

// AvailabilityPercent derives the normalized availability metric from a raw
// reading. The result is clamped to [0, 100]; a zero capacity yields 0.
func AvailabilityPercent(freeSpaces, totalCapacity int) float64 {
	if totalCapacity <= 0 {
		return 0
	}
	ratio := float64(freeSpaces) / float64(totalCapacity)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return ratio * 100
}

// LevelFor classifies an availability percentage.
func LevelFor(pct float64) Level {
	switch {
	case pct >= 40:
		return LevelHigh
	case pct >= 20:
		return LevelModerate
	default:
		return LevelLow
	}
}

// Hours answers opening-hours questions for the facility, including per-date
// overrides for holidays and special dates.
type Hours struct {
	cfg config.HoursConfig
}

// NewHours creates an Hours helper from configuration.
func NewHours(cfg config.HoursConfig) *Hours {
	return &Hours{cfg: cfg}
}

// DayWindow is the open/close window applying on one calendar date.
type DayWindow struct {
	Closed    bool
	OpenHour  int
	CloseHour int
	Special   bool
}

// WindowFor returns the opening window for the date of the given local time.
func (h *Hours) WindowFor(t time.Time) DayWindow {
	key := t.Format("2006-01-02")
	if sd, ok := h.cfg.SpecialDates[key]; ok {
		if sd.Closed {
			return DayWindow{Closed: true, Special: true}
		}
		open, close := sd.OpenHour, sd.CloseHour
		if close <= open {
			open, close = h.cfg.OpenHour, h.cfg.CloseHour
		}
		return DayWindow{OpenHour: open, CloseHour: close, Special: true}
	}
	return DayWindow{OpenHour: h.cfg.OpenHour, CloseHour: h.cfg.CloseHour}
}

// IsOpen reports whether the facility is open at the given local time.
func (h *Hours) IsOpen(t time.Time) bool {
	w := h.WindowFor(t)
	if w.Closed {
		return false
	}
	return t.Hour() >= w.OpenHour && t.Hour() < w.CloseHour
}

// ClosingWarning describes the closing-soon state at a point in time.
type ClosingWarning struct {
	Active           bool `json:"active"`
	Urgent           bool `json:"urgent"`
	RemainingMinutes int  `json:"remainingMinutes"`
}

// Closing evaluates the closing-soon warning for the given local time. On
// special dates the warning is active for the whole open day.
func (h *Hours) Closing(t time.Time) ClosingWarning {
	w := h.WindowFor(t)
	if w.Closed || !h.IsOpen(t) {
		return ClosingWarning{}
	}

	closeAt := time.Date(t.Year(), t.Month(), t.Day(), w.CloseHour, 0, 0, 0, t.Location())
	remaining := int(closeAt.Sub(t).Minutes())

	warn := ClosingWarning{RemainingMinutes: remaining}
	if w.Special {
		warn.Active = true
	}
	if remaining <= h.cfg.ClosingSoonMinutes {
		warn.Active = true
	}
	if remaining <= h.cfg.ClosingUrgentMinutes {
		warn.Urgent = true
	}
	return warn
}

// IsPastPeriod reports whether a forecast bucket is already over. A bucket is
// past only when its row's date is today and the current hour has reached the
// bucket's end; buckets on future dates are never past.
func IsPastPeriod(date string, p Period, now time.Time) bool {
	if date != now.Format("2006-01-02") {
		return false
	}
	return now.Hour() >= p.EndHour()
}
