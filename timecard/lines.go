/*
lines.go - Time entries of a timecard

PURPOSE:
  A Line records hours worked against a project on a given date. Lines
  live inside a timecard and can only be changed while it is a draft.

DERIVED FIELDS:
  Week, Year (ISO) and Day are never stored. They are computed from
  WorkDate each time a line is read (AnnotatedLine).

ORDERING:
  Lines are kept in insertion order internally. Readers always get them
  sorted by (WorkDate, Recorded), so two lines on the same date keep a
  stable order: the one recorded first comes first.

PARTIAL UPDATE:
  LineUpdate carries optional fields; nil means unchanged. Week, Year and
  Day jointly determine WorkDate. Components that are not supplied are
  taken from the line's current ISO (year, week, weekday), and the new
  date is the day with that ISO year/week/weekday.
*/
package timecard

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// NoLine is returned by LineIndex when the line does not exist.
const NoLine = -1

// Line is a stored time entry.
type Line struct {
	ID       LineID
	WorkDate time.Time
	Hours    decimal.Decimal
	Project  string
	Recorded time.Time
}

// LineInput is the caller-supplied content of a line.
type LineInput struct {
	WorkDate time.Time
	Hours    decimal.Decimal
	Project  string
}

// LineUpdate is a partial update. Nil fields are left unchanged.
type LineUpdate struct {
	Week    *int
	Year    *int
	Day     *time.Weekday
	Hours   *decimal.Decimal
	Project *string
}

// AnnotatedLine is a line with its calendar fields derived.
type AnnotatedLine struct {
	Line
	Week int
	Year int
	Day  time.Weekday
}

// Annotate derives the ISO week, ISO year and weekday of the line.
func (l Line) Annotate() AnnotatedLine {
	year, week := l.WorkDate.ISOWeek()
	return AnnotatedLine{
		Line: l,
		Week: week,
		Year: year,
		Day:  l.WorkDate.Weekday(),
	}
}

func (in LineInput) validate() error {
	if in.WorkDate.IsZero() {
		return &InvalidLineError{Field: "work_date", Reason: "required"}
	}
	if in.Hours.IsNegative() {
		return &InvalidLineError{Field: "hours", Reason: "must not be negative"}
	}
	return nil
}

// apply computes the line content after the update, without touching l.
func (u LineUpdate) apply(l Line) (Line, error) {
	if u.Week != nil || u.Year != nil || u.Day != nil {
		year, week := l.WorkDate.ISOWeek()
		day := l.WorkDate.Weekday()
		if u.Year != nil {
			year = *u.Year
		}
		if u.Week != nil {
			week = *u.Week
		}
		if u.Day != nil {
			day = *u.Day
		}
		if year < 1 || year > 9999 {
			return l, &InvalidLineError{Field: "year", Reason: fmt.Sprintf("%d out of range", year)}
		}
		if weeks := WeeksInYear(year); week < 1 || week > weeks {
			return l, &InvalidLineError{Field: "week", Reason: fmt.Sprintf("%d not in 1..%d for %d", week, weeks, year)}
		}
		if day < time.Sunday || day > time.Saturday {
			return l, &InvalidLineError{Field: "day", Reason: fmt.Sprintf("%d is not a weekday", day)}
		}
		l.WorkDate = DateFromISOWeek(year, week, day)
	}
	if u.Hours != nil {
		if u.Hours.IsNegative() {
			return l, &InvalidLineError{Field: "hours", Reason: "must not be negative"}
		}
		l.Hours = *u.Hours
	}
	if u.Project != nil {
		l.Project = *u.Project
	}
	return l, nil
}

// sortLines orders lines by work date, then by recorded time.
func sortLines(lines []AnnotatedLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].WorkDate.Equal(lines[j].WorkDate) {
			return lines[i].WorkDate.Before(lines[j].WorkDate)
		}
		return lines[i].Recorded.Before(lines[j].Recorded)
	})
}
