package service

import (
	"fmt"
	"time"
)

// monthRange returns the first and last calendar day of (year, month) at
// UTC midnight. All period scoping in balances, closures and settlements
// uses this inclusive range.
func monthRange(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return from, to
}

// normalizeDate truncates to a UTC calendar date so (station, date)
// uniqueness and prior-day lookups are timezone-stable.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validPeriod(year, month int) error {
	if year < 2000 || year > 2200 {
		return fmt.Errorf("%w: year %d out of range", ErrValidation, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrValidation, month)
	}
	return nil
}
