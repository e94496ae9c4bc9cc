package timecard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeeksInYear(t *testing.T) {
	tests := map[int]int{
		2015: 53,
		2019: 52,
		2020: 53,
		2021: 52,
		2024: 52,
		2026: 53,
	}
	for year, want := range tests {
		assert.Equal(t, want, WeeksInYear(year), "year %d", year)
	}
}

func TestDateFromISOWeek(t *testing.T) {
	tests := []struct {
		year, week int
		day        time.Weekday
		want       time.Time
	}{
		{2024, 1, time.Monday, NewDate(2024, time.January, 1)},
		{2021, 1, time.Monday, NewDate(2021, time.January, 4)},
		{2019, 1, time.Monday, NewDate(2018, time.December, 31)},
		{2020, 53, time.Sunday, NewDate(2021, time.January, 3)},
		{2024, 10, time.Wednesday, NewDate(2024, time.March, 6)},
	}
	for _, tt := range tests {
		got := DateFromISOWeek(tt.year, tt.week, tt.day)
		assert.Equal(t, tt.want, got, "%d-W%02d %s", tt.year, tt.week, tt.day)

		year, week := got.ISOWeek()
		assert.Equal(t, tt.year, year)
		assert.Equal(t, tt.week, week)
		assert.Equal(t, tt.day, got.Weekday())
	}
}

func TestDate_Truncates(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	got := Date(time.Date(2024, time.May, 17, 23, 59, 0, 0, loc))
	assert.Equal(t, NewDate(2024, time.May, 17), got)
}
