package ledger

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

// addMonths moves (month, year) forward by n months, carrying into the year.
func addMonths(month time.Month, year, n int) (time.Month, int) {
	idx := int(month) - 1 + n
	year += idx / 12
	idx %= 12
	if idx < 0 {
		idx += 12
		year--
	}
	return time.Month(idx + 1), year
}

// daysIn returns the number of days of month in year.
func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampedDate builds a date, pulling day back to the month's last day when
// the month is shorter.
func clampedDate(year int, month time.Month, day int) civil.Date {
	if last := daysIn(month, year); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// billingPeriod returns the invoice month a purchase belongs to. Purchases on
// or after the closing day roll into the next month. A closing day past the
// end of a short month closes on its last day.
func billingPeriod(purchase civil.Date, closingDay int) (time.Month, int) {
	closing := min(closingDay, daysIn(purchase.Month, purchase.Year))
	if purchase.Day >= closing {
		return addMonths(purchase.Month, purchase.Year, 1)
	}
	return purchase.Month, purchase.Year
}

// nextOccurrence advances d by one unit of freq. Monthly and yearly steps land
// on anchorDay, clamped to the target month, so a series started on the 31st
// keeps coming back to the 31st after passing through shorter months.
func nextOccurrence(d civil.Date, freq domain.Frequency, anchorDay int) civil.Date {
	switch freq {
	case domain.FrequencyDaily:
		return d.AddDays(1)
	case domain.FrequencyWeekly:
		return d.AddDays(7)
	case domain.FrequencyMonthly:
		month, year := addMonths(d.Month, d.Year, 1)
		return clampedDate(year, month, anchorDay)
	case domain.FrequencyYearly:
		return clampedDate(d.Year+1, d.Month, anchorDay)
	}
	return d
}
