package ledger

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestBillingPeriod(t *testing.T) {
	tests := []struct {
		name       string
		purchase   civil.Date
		closingDay int
		wantMonth  time.Month
		wantYear   int
	}{
		{"before closing day", date(2024, 3, 9), 10, time.March, 2024},
		{"on closing day", date(2024, 3, 10), 10, time.April, 2024},
		{"after closing day", date(2024, 3, 15), 10, time.April, 2024},
		{"december rolls into january", date(2024, 12, 20), 10, time.January, 2025},
		{"closing day 1 always rolls", date(2024, 6, 1), 1, time.July, 2024},
		{"closing day 31 in april closes on the 30th", date(2024, 4, 30), 31, time.May, 2024},
		{"closing day 31 in leap february", date(2024, 2, 29), 31, time.March, 2024},
		{"closing day 30 in february", date(2023, 2, 28), 30, time.March, 2023},
		{"closing day 31 before month end", date(2024, 4, 29), 31, time.April, 2024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, y := billingPeriod(tt.purchase, tt.closingDay)
			assert.Equal(t, tt.wantMonth, m)
			assert.Equal(t, tt.wantYear, y)
		})
	}
}

func TestAddMonths(t *testing.T) {
	m, y := addMonths(time.November, 2024, 3)
	assert.Equal(t, time.February, m)
	assert.Equal(t, 2025, y)

	m, y = addMonths(time.January, 2024, 24)
	assert.Equal(t, time.January, m)
	assert.Equal(t, 2026, y)
}

func TestClampedDate(t *testing.T) {
	assert.Equal(t, date(2024, 2, 29), clampedDate(2024, time.February, 31))
	assert.Equal(t, date(2023, 2, 28), clampedDate(2023, time.February, 30))
	assert.Equal(t, date(2024, 4, 30), clampedDate(2024, time.April, 31))
	assert.Equal(t, date(2024, 4, 20), clampedDate(2024, time.April, 20))
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name   string
		from   civil.Date
		freq   domain.Frequency
		anchor int
		want   civil.Date
	}{
		{"daily", date(2024, 2, 28), domain.FrequencyDaily, 28, date(2024, 2, 29)},
		{"weekly across month", date(2024, 1, 29), domain.FrequencyWeekly, 29, date(2024, 2, 5)},
		{"monthly plain", date(2024, 1, 5), domain.FrequencyMonthly, 5, date(2024, 2, 5)},
		{"monthly jan 31 to leap feb", date(2024, 1, 31), domain.FrequencyMonthly, 31, date(2024, 2, 29)},
		{"monthly jan 31 to feb", date(2023, 1, 31), domain.FrequencyMonthly, 31, date(2023, 2, 28)},
		{"monthly back to anchor", date(2024, 2, 29), domain.FrequencyMonthly, 31, date(2024, 3, 31)},
		{"monthly december", date(2024, 12, 15), domain.FrequencyMonthly, 15, date(2025, 1, 15)},
		{"yearly leap day", date(2024, 2, 29), domain.FrequencyYearly, 29, date(2025, 2, 28)},
		{"yearly back to leap day", date(2027, 2, 28), domain.FrequencyYearly, 29, date(2028, 2, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextOccurrence(tt.from, tt.freq, tt.anchor))
		})
	}
}

func TestSplitInstallments(t *testing.T) {
	d := decimal.RequireFromString

	drop := splitInstallments(d("100"), 3, RemainderDrop)
	for _, p := range drop {
		assert.True(t, p.Equal(d("33.33")), p.String())
	}

	last := splitInstallments(d("100"), 3, RemainderLast)
	assert.True(t, last[0].Equal(d("33.33")))
	assert.True(t, last[2].Equal(d("33.34")))
	assert.True(t, last[0].Add(last[1]).Add(last[2]).Equal(d("100")))

	even := splitInstallments(d("300"), 3, RemainderDrop)
	for _, p := range even {
		assert.True(t, p.Equal(d("100")))
	}
}

func TestParseRemainderPolicy(t *testing.T) {
	p, err := ParseRemainderPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, RemainderDrop, p)

	p, err = ParseRemainderPolicy("last")
	assert.NoError(t, err)
	assert.Equal(t, RemainderLast, p)

	_, err = ParseRemainderPolicy("round")
	assert.Error(t, err)
}
