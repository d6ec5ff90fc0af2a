package status

// Period is one of the six fixed daily time buckets used to aggregate
// forecasts. Each bucket covers a fixed, non-overlapping hour range.
type Period string

const (
	PeriodEarlyMorning Period = "early_morning" // 06-09
	PeriodLateMorning  Period = "late_morning"  // 09-11
	PeriodLunch        Period = "lunch"         // 11-13
	PeriodAfternoon    Period = "afternoon"     // 13-16
	PeriodAfterWork    Period = "after_work"    // 16-19
	PeriodEvening      Period = "evening"       // 19-22
)

// Periods lists all buckets in chronological order.
var Periods = []Period{
	PeriodEarlyMorning,
	PeriodLateMorning,
	PeriodLunch,
	PeriodAfternoon,
	PeriodAfterWork,
	PeriodEvening,
}

var periodHours = map[Period][2]int{
	PeriodEarlyMorning: {6, 9},
	PeriodLateMorning:  {9, 11},
	PeriodLunch:        {11, 13},
	PeriodAfternoon:    {13, 16},
	PeriodAfterWork:    {16, 19},
	PeriodEvening:      {19, 22},
}

// StartHour returns the inclusive start hour of the bucket.
func (p Period) StartHour() int {
	return periodHours[p][0]
}

// EndHour returns the exclusive end hour of the bucket.
func (p Period) EndHour() int {
	return periodHours[p][1]
}

// Contains reports whether the given hour of day falls inside the bucket.
func (p Period) Contains(hour int) bool {
	h := periodHours[p]
	return hour >= h[0] && hour < h[1]
}

// Valid reports whether p is one of the six known buckets.
func (p Period) Valid() bool {
	_, ok := periodHours[p]
	return ok
}

// PeriodForHour maps an hour of day to its bucket. Hours outside the
// 06:00-22:00 operating window belong to no bucket.
func PeriodForHour(hour int) (Period, bool) {
	for _, p := range Periods {
		if p.Contains(hour) {
			return p, true
		}
	}
	return "", false
}
