package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pool-status-backend/config"
)

func testHours() *Hours {
	return NewHours(config.HoursConfig{
		OpenHour:             6,
		CloseHour:            22,
		ClosingSoonMinutes:   90,
		ClosingUrgentMinutes: 60,
		SpecialDates: map[string]config.SpecialDate{
			"2025-12-24": {OpenHour: 6, CloseHour: 16},
			"2025-12-25": {Closed: true},
		},
	})
}

func TestAvailabilityPercent(t *testing.T) {
	testCases := []struct {
		name     string
		free     int
		total    int
		expected float64
	}{
		{"normal reading", 45, 100, 45},
		{"full facility", 0, 100, 0},
		{"empty facility", 100, 100, 100},
		{"free exceeds capacity, clamped", 250, 200, 100},
		{"negative free, clamped", -5, 100, 0},
		{"zero capacity", 45, 0, 0},
		{"negative capacity", 45, -1, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AvailabilityPercent(tc.free, tc.total))
		})
	}
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelHigh, LevelFor(45))
	assert.Equal(t, LevelHigh, LevelFor(40))
	assert.Equal(t, LevelModerate, LevelFor(39.9))
	assert.Equal(t, LevelModerate, LevelFor(20))
	assert.Equal(t, LevelLow, LevelFor(19.9))
	assert.Equal(t, LevelLow, LevelFor(0))
}

func TestIsOpen(t *testing.T) {
	h := testHours()

	testCases := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"mid-afternoon", time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC), true},
		{"opening hour", time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC), true},
		{"just before close", time.Date(2025, 7, 1, 21, 59, 0, 0, time.UTC), true},
		{"after close", time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC), false},
		{"before open", time.Date(2025, 7, 1, 5, 30, 0, 0, time.UTC), false},
		{"special date shorter hours, inside", time.Date(2025, 12, 24, 15, 0, 0, 0, time.UTC), true},
		{"special date shorter hours, outside", time.Date(2025, 12, 24, 17, 0, 0, 0, time.UTC), false},
		{"special date fully closed", time.Date(2025, 12, 25, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.open, h.IsOpen(tc.at))
		})
	}
}

func TestClosing(t *testing.T) {
	h := testHours()

	t.Run("not yet closing soon", func(t *testing.T) {
		w := h.Closing(time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC))
		assert.False(t, w.Active)
		assert.False(t, w.Urgent)
	})

	t.Run("within 90 minutes of close", func(t *testing.T) {
		w := h.Closing(time.Date(2025, 7, 1, 20, 45, 0, 0, time.UTC))
		assert.True(t, w.Active)
		assert.False(t, w.Urgent)
		assert.Equal(t, 75, w.RemainingMinutes)
	})

	t.Run("within 60 minutes of close", func(t *testing.T) {
		w := h.Closing(time.Date(2025, 7, 1, 21, 15, 0, 0, time.UTC))
		assert.True(t, w.Active)
		assert.True(t, w.Urgent)
	})

	t.Run("special date warns all day", func(t *testing.T) {
		w := h.Closing(time.Date(2025, 12, 24, 8, 0, 0, 0, time.UTC))
		assert.True(t, w.Active)
		assert.False(t, w.Urgent)
	})

	t.Run("closed facility has no warning", func(t *testing.T) {
		w := h.Closing(time.Date(2025, 7, 1, 23, 0, 0, 0, time.UTC))
		assert.False(t, w.Active)
	})
}

func TestPeriodForHour(t *testing.T) {
	testCases := []struct {
		hour   int
		period Period
		ok     bool
	}{
		{6, PeriodEarlyMorning, true},
		{8, PeriodEarlyMorning, true},
		{9, PeriodLateMorning, true},
		{11, PeriodLunch, true},
		{13, PeriodAfternoon, true},
		{16, PeriodAfterWork, true},
		{19, PeriodEvening, true},
		{21, PeriodEvening, true},
		{22, "", false},
		{5, "", false},
		{0, "", false},
	}

	for _, tc := range testCases {
		p, ok := PeriodForHour(tc.hour)
		assert.Equal(t, tc.ok, ok, "hour %d", tc.hour)
		assert.Equal(t, tc.period, p, "hour %d", tc.hour)
	}
}

// Two legacy views disagreed on when a bucket counts as over: one looked at
// the clock alone, the other also required the row's date to be today. The
// date check is canonical; both halves are pinned here.
func TestIsPastPeriod(t *testing.T) {
	now := time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC) // 14:00 on 2025-07-01

	t.Run("today, bucket already ended", func(t *testing.T) {
		assert.True(t, IsPastPeriod("2025-07-01", PeriodLunch, now))
		assert.True(t, IsPastPeriod("2025-07-01", PeriodEarlyMorning, now))
	})

	t.Run("today, bucket still running or ahead", func(t *testing.T) {
		assert.False(t, IsPastPeriod("2025-07-01", PeriodAfternoon, now))
		assert.False(t, IsPastPeriod("2025-07-01", PeriodEvening, now))
	})

	t.Run("future date is never past regardless of the clock", func(t *testing.T) {
		assert.False(t, IsPastPeriod("2025-07-02", PeriodEarlyMorning, now))
		assert.False(t, IsPastPeriod("2025-07-02", PeriodLunch, now))
	})
}
