package timedataset

import (
	"time"

	"github.com/rickar/cal/v2"
)

// WorkingDays counts the weekdays of the month containing t that are not the
// observed date of any of the holidays.
func WorkingDays(t time.Time, holidays []*cal.Holiday) int {
	year, month := t.Year(), t.Month()

	off := make(map[int]struct{})
	for _, hol := range holidays {
		if hol == nil {
			continue
		}
		// observed dates can move into the neighbouring year
		for _, y := range []int{year - 1, year, year + 1} {
			_, observed := hol.Calc(y)
			if observed.IsZero() || observed.Year() != year || observed.Month() != month {
				continue
			}
			off[observed.Day()] = struct{}{}
		}
	}

	var days int
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}
		if _, isHoliday := off[d.Day()]; isHoliday {
			continue
		}
		days++
	}
	return days
}
