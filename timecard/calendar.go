package timecard

import "time"

// =============================================================================
// CALENDAR - ISO week arithmetic for work dates
// =============================================================================

// Date truncates t to a UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a UTC calendar date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// isoWeekday maps Sunday to 7, Monday to 1.
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// WeeksInYear returns the number of ISO weeks (52 or 53) in an ISO year.
// December 28 always falls in the last week of its ISO year.
func WeeksInYear(year int) int {
	_, w := NewDate(year, time.December, 28).ISOWeek()
	return w
}

// DateFromISOWeek returns the date of the given weekday in an ISO week.
// Week 1 is the week containing January 4.
func DateFromISOWeek(year, week int, day time.Weekday) time.Time {
	jan4 := NewDate(year, time.January, 4)
	monday := jan4.AddDate(0, 0, 1-isoWeekday(jan4.Weekday()))
	return monday.AddDate(0, 0, (week-1)*7+isoWeekday(day)-1)
}
