package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/ewhitfield/tend/internal/model"
	"github.com/ewhitfield/tend/internal/schedule"
)

// maxInstances caps the number of projected instances generated per event
// per call. It is the safety net against unbounded loops from malformed
// recurrence end dates and is asserted by tests; do not relax it.
const maxInstances = 100

// stepDays maps a recurrence pattern to its step in days. Steps are flat
// day-multiples, matching the task interval resolver (30-day months,
// 365-day years).
func stepDays(p model.RecurrencePattern) int {
	switch p {
	case model.RecurDaily:
		return 1
	case model.RecurWeekly:
		return 7
	case model.RecurBiweekly:
		return 14
	case model.RecurMonthly:
		return 30
	case model.RecurYearly:
		return 365
	}
	return 0
}

// InstanceID builds the synthesized id of a projected occurrence.
func InstanceID(baseID string, date time.Time) string {
	return fmt.Sprintf("%s-recurring-%s", baseID, date.Format("2006-01-02"))
}

// SeriesID maps an instance id back to the stored event id. Projected
// instances are never persisted, so edits and deletes addressed at one
// resolve to the whole series. Non-synthesized ids pass through unchanged.
func SeriesID(id string) string {
	if i := strings.Index(id, "-recurring-"); i >= 0 {
		return id[:i]
	}
	return id
}

// Expand produces the event's instances inside [windowStart, windowEnd].
// The stored event itself is always the first instance. For a recurring
// event, virtual projections follow: shallow copies with a synthesized id,
// their own date, and a back-reference to the parent. Projections are
// bounded by the recurrence end date (when set), the window end, and the
// per-call instance cap.
func Expand(ev model.CalendarEvent, windowStart, windowEnd time.Time) []model.EventInstance {
	instances := []model.EventInstance{{CalendarEvent: ev}}

	step := stepDays(ev.Recurrence)
	if step <= 0 {
		return instances
	}

	bound := windowEnd
	if ev.RecurrenceEnd != nil && ev.RecurrenceEnd.Before(bound) {
		bound = *ev.RecurrenceEnd
	}

	generated := 0
	for date := ev.Date.AddDate(0, 0, step); !date.After(bound); date = date.AddDate(0, 0, step) {
		if generated >= maxInstances {
			break
		}
		if date.Before(windowStart) {
			continue
		}

		inst := model.EventInstance{CalendarEvent: ev, RecurrenceParentID: ev.ID}
		inst.ID = InstanceID(ev.ID, date)
		inst.Date = date
		instances = append(instances, inst)
		generated++
	}

	return instances
}

// OccursOn reports whether the event (ignoring recurrence) is associated
// with the given day: the day it starts, or any day inside its multi-day
// span, end date inclusive.
func OccursOn(ev model.CalendarEvent, day time.Time) bool {
	if schedule.SameDay(ev.Date, day) {
		return true
	}
	if ev.EndDate == nil {
		return false
	}
	d := schedule.StartOfDay(day)
	return !d.Before(schedule.StartOfDay(ev.Date)) && !d.After(schedule.StartOfDay(*ev.EndDate))
}
