package dates

import "time"

// DayWindow returns the half-open interval [start-of-day, start-of-next-day)
// for the calendar day containing ref in the given location. Every day-scoped
// record query in the system is bounded by this window.
func DayWindow(ref time.Time, loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := ref.In(loc)
	from = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	to = from.AddDate(0, 0, 1)
	return from, to
}

// Day truncates ref to its calendar date in loc. Used as the natural key for
// the one-record-per-student-per-day constraint.
func Day(ref time.Time, loc *time.Location) time.Time {
	from, _ := DayWindow(ref, loc)
	return from
}

// DaysInMonth returns the number of days in the given month, leap years
// included. month is 1-based.
func DaysInMonth(month, year int) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDate parses a YYYY-MM-DD value in the given location.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02", raw, loc)
}
