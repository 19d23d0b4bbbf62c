package service

import (
	"time"

	"github.com/quantfolio/portfolio-performance-backend/internal/repository"
)

const dateLayout = "2006-01-02"

// nextDay advances an ISO date string by one calendar day.
func nextDay(date string) string {
	t, err := repository.ParseTime(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format(dateLayout)
}

// maxDate returns the later of two ISO date strings. ISO dates order
// correctly under plain string comparison.
func maxDate(a, b string) string {
	if a > b {
		return a
	}
	return b
}

// minDate returns the earlier of two ISO date strings.
func minDate(a, b string) string {
	if a < b {
		return a
	}
	return b
}

// daysBetween counts the calendar days from one ISO date to another.
func daysBetween(from, to string) int {
	f, err := repository.ParseTime(from)
	if err != nil {
		return 0
	}
	t, err := repository.ParseTime(to)
	if err != nil {
		return 0
	}
	return int(t.Sub(f).Hours() / 24)
}

// dateRange lists every calendar day from first to last inclusive.
func dateRange(first, last string) []string {
	if first > last {
		return nil
	}

	dates := []string{}
	for d := first; d <= last; d = nextDay(d) {
		dates = append(dates, d)
	}
	return dates
}

// today formats a clock reading as an ISO date in UTC.
func today(now func() time.Time) string {
	return now().UTC().Format(dateLayout)
}
