package model

import "time"

// RecurrencePattern is the repeat cadence of a calendar event.
type RecurrencePattern string

const (
	RecurNone     RecurrencePattern = "none"
	RecurDaily    RecurrencePattern = "daily"
	RecurWeekly   RecurrencePattern = "weekly"
	RecurBiweekly RecurrencePattern = "biweekly"
	RecurMonthly  RecurrencePattern = "monthly"
	RecurYearly   RecurrencePattern = "yearly"
)

type CalendarEvent struct {
	ID          string `json:"id"`
	HouseholdID string `json:"household_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Location    string `json:"location,omitempty"`

	// Date is the start day. EndDate, when set, makes the event span
	// [Date, EndDate] inclusive.
	Date    time.Time  `json:"date"`
	EndDate *time.Time `json:"end_date,omitempty"`

	// StartTime/EndTime are "HH:MM" strings, empty for all-day events.
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	AllDay    bool   `json:"all_day"`

	Recurrence    RecurrencePattern `json:"recurrence"`
	RecurrenceEnd *time.Time        `json:"recurrence_end,omitempty"`

	Attendees []string `json:"attendees,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventInstance is a single occurrence of an event inside a query window.
// For a recurring event all instances past the first are virtual projections:
// they carry a synthesized ID and a RecurrenceParentID pointing back at the
// stored event, and must never be persisted or edited independently.
type EventInstance struct {
	CalendarEvent
	RecurrenceParentID string `json:"recurrence_parent_id,omitempty"`
}

// IsProjection reports whether the instance is a virtual projection rather
// than the stored event itself.
func (i EventInstance) IsProjection() bool {
	return i.RecurrenceParentID != ""
}
