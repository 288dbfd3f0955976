package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ewhitfield/tend/internal/model"
)

// ErrInvalidOperation marks engine operations that are illegal for the
// task's current shape, such as skipping a one-time task.
var ErrInvalidOperation = errors.New("invalid operation")

// CompletionInput carries the caller-supplied details of a completion.
type CompletionInput struct {
	By            string
	Note          string
	Rooms         []string
	ActualMinutes int
}

// ApplyCompletion processes a completion event against a task and returns
// the updated task plus the ledger record to append. The input task is not
// mutated.
//
// For a task with rooms, streak/average/reschedule/rotation only run once
// every assigned room has been checked off; partial completions just grow
// the completed-rooms set. members is the eligible pool for "anyone"
// rotation picks.
func ApplyCompletion(t model.Task, in CompletionInput, now time.Time, rot *Rotator, members []string) (model.Task, model.CompletionRecord) {
	t = Normalize(t, now)

	// On-time is judged against the due date before any rescheduling.
	wasOnTime := !ComputeStatus(t, now).Overdue

	completed := mergeRooms(t.Progress.CompletedRooms, in.Rooms)
	allRoomsDone := containsAll(completed, t.Rooms)

	record := model.CompletionRecord{
		ID:            uuid.NewString(),
		TaskID:        t.ID,
		HouseholdID:   t.HouseholdID,
		CompletedBy:   in.By,
		CompletedAt:   now,
		Note:          in.Note,
		Rooms:         in.Rooms,
		ActualMinutes: in.ActualMinutes,
	}

	completedAt := now
	t.Progress.LastCompletedAt = &completedAt
	t.Progress.LastCompletedBy = in.By
	t.Progress.CompletedRooms = completed
	t.Progress.TotalCompletions += max(1, len(in.Rooms))

	if !allRoomsDone {
		return t, record
	}

	if wasOnTime && t.Schedule.Frequency != model.FreqOnce {
		t.Progress.Streak++
		if t.Progress.Streak > t.Progress.BestStreak {
			t.Progress.BestStreak = t.Progress.Streak
		}
	} else {
		t.Progress.Streak = 0
	}

	if t.EstimatedMinutes > 0 && in.ActualMinutes > 0 {
		prevAvg := t.Progress.AverageMinutes
		if prevAvg == 0 {
			prevAvg = float64(t.EstimatedMinutes)
		}
		prevCount := t.Progress.TotalCompletions - 1
		if prevCount < 0 {
			prevCount = 0
		}
		t.Progress.AverageMinutes = (prevAvg*float64(prevCount) + float64(in.ActualMinutes)) / float64(prevCount+1)
	}

	if t.Schedule.Frequency == model.FreqOnce {
		t.Progress.Completed = true
		return t, record
	}

	t.Progress.Completed = false
	t.Progress.DueAt = NextDueAt(t, now)
	t.Progress.CompletedRooms = nil
	if rot != nil {
		t = rot.Advance(t, members)
	}

	return t, record
}

// ApplySkip advances a recurring task to its next cycle without crediting a
// completion. The streak always resets. Skipping a one-time task is illegal.
func ApplySkip(t model.Task, by string, now time.Time) (model.Task, model.CompletionRecord, error) {
	t = Normalize(t, now)

	if t.Schedule.Frequency == model.FreqOnce {
		return t, model.CompletionRecord{}, fmt.Errorf("skip one-time task %s: %w", t.ID, ErrInvalidOperation)
	}

	record := model.CompletionRecord{
		ID:          uuid.NewString(),
		TaskID:      t.ID,
		HouseholdID: t.HouseholdID,
		CompletedBy: by,
		CompletedAt: now,
		Skipped:     true,
	}

	skipped := now
	t.Progress.Streak = 0
	t.Progress.LastSkipped = &skipped
	t.Progress.DueAt = NextDueAt(t, now)
	t.Progress.CompletedRooms = nil

	return t, record, nil
}

func mergeRooms(have, add []string) []string {
	if len(add) == 0 {
		return have
	}
	seen := make(map[string]bool, len(have)+len(add))
	merged := make([]string, 0, len(have)+len(add))
	for _, r := range have {
		if !seen[r] {
			seen[r] = true
			merged = append(merged, r)
		}
	}
	for _, r := range add {
		if !seen[r] {
			seen[r] = true
			merged = append(merged, r)
		}
	}
	return merged
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, r := range have {
		set[r] = true
	}
	for _, r := range want {
		if !set[r] {
			return false
		}
	}
	return true
}
