package schedule

import "time"

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of whole days elapsed from earlier to
// later, flooring partial days. Returns 0 if later is not after earlier.
func DaysBetween(earlier, later time.Time) int {
	if !later.After(earlier) {
		return 0
	}
	return int(later.Sub(earlier) / Day)
}
