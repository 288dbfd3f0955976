package model

import "time"

// Frequency describes how often a task recurs.
type Frequency string

const (
	FreqOnce      Frequency = "once"
	FreqDaily     Frequency = "daily"
	FreqWeekly    Frequency = "weekly"
	FreqBiweekly  Frequency = "biweekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqYearly    Frequency = "yearly"
	FreqCustom    Frequency = "custom"
)

// ScheduleMode controls where the next occurrence is anchored.
type ScheduleMode string

const (
	// ModeFixed anchors the next occurrence to the previous due date.
	ModeFixed ScheduleMode = "fixed"
	// ModeAfterCompletion anchors the next occurrence to the completion time.
	ModeAfterCompletion ScheduleMode = "after_completion"
)

// RotationMode controls how the assignee changes after each completed cycle.
type RotationMode string

const (
	RotationNone   RotationMode = "none"
	RotationRotate RotationMode = "rotate"
	RotationAnyone RotationMode = "anyone"
)

// Schedule is the recurrence definition of a task. It is set at creation
// (or edit) time and never mutated by completion processing.
type Schedule struct {
	Frequency  Frequency    `json:"frequency"`
	Mode       ScheduleMode `json:"schedule_mode"`
	CustomDays int          `json:"custom_days,omitempty"`
}

// Progress is the mutable completion state of a task. Completion and skip
// processing returns a task with a new Progress; nothing else changes.
type Progress struct {
	DueAt            time.Time  `json:"due_at"`
	Completed        bool       `json:"completed"`
	LastCompletedAt  *time.Time `json:"last_completed_at,omitempty"`
	LastCompletedBy  string     `json:"last_completed_by,omitempty"`
	LastSkipped      *time.Time `json:"last_skipped,omitempty"`
	Streak           int        `json:"streak"`
	BestStreak       int        `json:"best_streak"`
	TotalCompletions int        `json:"total_completions"`
	AverageMinutes   float64    `json:"average_minutes"`
	CompletedRooms   []string   `json:"completed_rooms,omitempty"`
	RotationIndex    int        `json:"rotation_index"`
}

type Task struct {
	ID          string   `json:"id"`
	HouseholdID string   `json:"household_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Schedule    Schedule `json:"schedule"`
	Progress    Progress `json:"progress"`

	// Raw inputs a client may supply instead of Progress.DueAt; normalization
	// resolves them into Progress.DueAt and they carry no meaning afterwards.
	DueDate *time.Time `json:"due_date,omitempty"`
	NextDue *time.Time `json:"next_due,omitempty"`

	// EstimatedMinutes, when positive, marks the task as time-tracked and
	// seeds the running average on the first completion.
	EstimatedMinutes int `json:"estimated_minutes,omitempty"`

	Rooms []string `json:"rooms,omitempty"`

	AssignedTo    string       `json:"assigned_to,omitempty"`
	Rotation      RotationMode `json:"rotation"`
	RotationOrder []string     `json:"rotation_order,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompletionRecord is an append-only fact about a completion or skip.
// Records are never mutated after creation.
type CompletionRecord struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	HouseholdID   string    `json:"household_id"`
	CompletedBy   string    `json:"completed_by,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
	Skipped       bool      `json:"skipped"`
	Note          string    `json:"note,omitempty"`
	Rooms         []string  `json:"rooms,omitempty"`
	ActualMinutes int       `json:"actual_minutes,omitempty"`
}
