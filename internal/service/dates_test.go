package service

import "testing"

// TestDateHelpers tests the ISO date arithmetic helpers.
//
// WHY: Every computation window walks calendar days as date strings. The
// helpers must cross month and year boundaries correctly and be consistent
// with plain string ordering.
func TestDateHelpers(t *testing.T) {
	t.Run("nextDay crosses month and year boundaries", func(t *testing.T) {
		cases := map[string]string{
			"2024-01-30": "2024-01-31",
			"2024-01-31": "2024-02-01",
			"2024-02-28": "2024-02-29", // leap year
			"2024-12-31": "2025-01-01",
		}
		for in, want := range cases {
			if got := nextDay(in); got != want {
				t.Errorf("nextDay(%s) = %s, want %s", in, got, want)
			}
		}
	})

	t.Run("daysBetween counts calendar days", func(t *testing.T) {
		if got := daysBetween("2024-01-01", "2024-01-01"); got != 0 {
			t.Errorf("Expected 0 days, got %d", got)
		}
		if got := daysBetween("2024-01-01", "2025-01-01"); got != 366 {
			t.Errorf("Expected 366 days across leap year, got %d", got)
		}
	})

	t.Run("dateRange is inclusive on both ends", func(t *testing.T) {
		dates := dateRange("2024-01-30", "2024-02-01")

		want := []string{"2024-01-30", "2024-01-31", "2024-02-01"}
		if len(dates) != len(want) {
			t.Fatalf("Expected %d dates, got %d", len(want), len(dates))
		}
		for i := range want {
			if dates[i] != want[i] {
				t.Errorf("Date %d: expected %s, got %s", i, want[i], dates[i])
			}
		}
	})

	t.Run("dateRange empty when inverted", func(t *testing.T) {
		if dates := dateRange("2024-01-02", "2024-01-01"); len(dates) != 0 {
			t.Errorf("Expected empty range, got %d dates", len(dates))
		}
	})
}
