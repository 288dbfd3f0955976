package schedule

import (
	"time"

	"github.com/ewhitfield/tend/internal/model"
)

// Day is the fixed day length used for all interval arithmetic. Recurrence
// intervals are flat day-multiples: "monthly" is 30 days and "yearly" is 365,
// with no calendar-month or leap-year correction.
const Day = 24 * time.Hour

// DefaultCustomDays is substituted when a custom frequency has a missing,
// zero, or negative day count.
const DefaultCustomDays = 7

// IntervalOf maps a frequency to its recurrence interval. It is total:
// unknown frequencies and bad custom day counts fall back to the weekly
// default rather than failing. "once" has no interval and returns 0.
func IntervalOf(freq model.Frequency, customDays int) time.Duration {
	switch freq {
	case model.FreqOnce:
		return 0
	case model.FreqDaily:
		return Day
	case model.FreqWeekly:
		return 7 * Day
	case model.FreqBiweekly:
		return 14 * Day
	case model.FreqMonthly:
		return 30 * Day
	case model.FreqQuarterly:
		return 90 * Day
	case model.FreqYearly:
		return 365 * Day
	case model.FreqCustom:
		if customDays <= 0 {
			customDays = DefaultCustomDays
		}
		return time.Duration(customDays) * Day
	}
	return 7 * Day
}

// TaskInterval resolves the interval for a task's schedule.
func TaskInterval(t model.Task) time.Duration {
	return IntervalOf(t.Schedule.Frequency, t.Schedule.CustomDays)
}
