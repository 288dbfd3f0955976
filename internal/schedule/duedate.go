package schedule

import (
	"log/slog"
	"time"

	"github.com/ewhitfield/tend/internal/model"
)

// Normalize fills in the derivable fields of a task so that every later
// computation can rely on them: schedule mode, rotation mode, custom day
// count, and above all Progress.DueAt, which is never zero afterwards.
// It is idempotent — normalizing an already-normalized task is a no-op.
func Normalize(t model.Task, now time.Time) model.Task {
	switch t.Schedule.Frequency {
	case "":
		t.Schedule.Frequency = model.FreqOnce
	case model.FreqOnce, model.FreqDaily, model.FreqWeekly, model.FreqBiweekly,
		model.FreqMonthly, model.FreqQuarterly, model.FreqYearly, model.FreqCustom:
	default:
		slog.Warn("unknown frequency, using weekly",
			"task_id", t.ID, "frequency", t.Schedule.Frequency)
		t.Schedule.Frequency = model.FreqWeekly
	}

	if t.Schedule.Mode == "" {
		if t.Schedule.Frequency == model.FreqOnce {
			t.Schedule.Mode = model.ModeFixed
		} else {
			t.Schedule.Mode = model.ModeAfterCompletion
		}
	}

	if t.Schedule.Frequency == model.FreqCustom && t.Schedule.CustomDays <= 0 {
		slog.Warn("custom interval out of range, using default",
			"task_id", t.ID, "custom_days", t.Schedule.CustomDays, "default", DefaultCustomDays)
		t.Schedule.CustomDays = DefaultCustomDays
	}

	if t.Rotation == "" {
		t.Rotation = model.RotationNone
	}

	if t.Progress.DueAt.IsZero() {
		switch {
		case t.Schedule.Frequency == model.FreqOnce && t.DueDate != nil:
			t.Progress.DueAt = *t.DueDate
		case t.NextDue != nil:
			t.Progress.DueAt = *t.NextDue
		default:
			anchor := now
			if t.Progress.LastCompletedAt != nil {
				anchor = *t.Progress.LastCompletedAt
			}
			t.Progress.DueAt = anchor.Add(TaskInterval(t))
		}
	}

	return t
}

// NextDueAt computes the due timestamp that follows a completion (or skip)
// at completedAt.
//
// One-time tasks keep their due date unchanged. After-completion schedules
// anchor to the completion time. Fixed schedules step forward from the
// current due date by whole intervals until the result is strictly in the
// future relative to completedAt, so missed cycles never produce a past
// due date.
func NextDueAt(t model.Task, completedAt time.Time) time.Time {
	if t.Schedule.Frequency == model.FreqOnce {
		return t.Progress.DueAt
	}

	interval := TaskInterval(t)
	if interval <= 0 {
		return t.Progress.DueAt
	}

	if t.Schedule.Mode == model.ModeAfterCompletion {
		return completedAt.Add(interval)
	}

	next := t.Progress.DueAt
	for !next.After(completedAt) {
		next = next.Add(interval)
	}
	return next
}

// Status is the point-in-time due state of a task. Overdue and DueToday can
// both be set (due earlier today); callers give overdue priority when
// sorting or displaying.
type Status struct {
	Overdue     bool `json:"overdue"`
	DueToday    bool `json:"due_today"`
	DueSoon     bool `json:"due_soon"`
	DaysOverdue int  `json:"days_overdue"`
}

// ComputeStatus classifies a task's due state at the given time. A one-time
// task that has been completed reports no flags.
func ComputeStatus(t model.Task, now time.Time) Status {
	if t.Progress.Completed {
		return Status{}
	}

	due := t.Progress.DueAt
	var s Status

	if due.Before(now) {
		s.Overdue = true
		s.DaysOverdue = DaysBetween(due, now)
	}
	if SameDay(due, now) {
		s.DueToday = true
	}
	if !s.Overdue && !s.DueToday && due.Sub(now) < 24*time.Hour {
		s.DueSoon = true
	}

	return s
}

// CompletedForToday reports whether a recurring task has already been
// completed on the same calendar day as now. This is how a recurring task
// shows as "done" without a persisted completed flag.
func CompletedForToday(t model.Task, now time.Time) bool {
	return t.Progress.LastCompletedAt != nil && SameDay(*t.Progress.LastCompletedAt, now)
}
