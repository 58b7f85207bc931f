package wins

import (
	"fmt"
	"time"
)

// FinancialYear returns the UK financial year containing t. Years start on
// 1 April and are named by their starting calendar year, so 2024 runs from
// April 2024 to March 2025.
func FinancialYear(t time.Time) int {
	if t.Month() < time.April {
		return t.Year() - 1
	}
	return t.Year()
}

// FinancialYearBounds returns the half-open range [start, end) of fy in UTC
func FinancialYearBounds(fy int) (time.Time, time.Time) {
	start := time.Date(fy, time.April, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// FinancialYearLabel formats fy the way reports name it, e.g. "2024/25"
func FinancialYearLabel(fy int) string {
	return fmt.Sprintf("%d/%02d", fy, (fy+1)%100)
}
