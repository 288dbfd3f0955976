package schedule

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/ewhitfield/tend/internal/model"
)

func testRotator() *Rotator {
	return NewRotator(rand.NewSource(1))
}

func TestApplyCompletionOnTimeStreak(t *testing.T) {
	task := weeklyTask(model.ModeFixed, testNow.Add(2*time.Hour))
	task.Progress.Streak = 3
	task.Progress.BestStreak = 3

	got, rec := ApplyCompletion(task, CompletionInput{By: "m1"}, testNow, testRotator(), nil)

	if got.Progress.Streak != 4 {
		t.Errorf("streak = %d, want 4", got.Progress.Streak)
	}
	if got.Progress.BestStreak != 4 {
		t.Errorf("best streak = %d, want 4", got.Progress.BestStreak)
	}
	if got.Progress.TotalCompletions != 1 {
		t.Errorf("total completions = %d, want 1", got.Progress.TotalCompletions)
	}
	if got.Progress.Completed {
		t.Error("recurring task must not set the completed flag")
	}
	if got.Progress.LastCompletedBy != "m1" {
		t.Errorf("last completed by = %q, want %q", got.Progress.LastCompletedBy, "m1")
	}
	if rec.Skipped {
		t.Error("completion record must not be marked skipped")
	}
	if rec.TaskID != task.ID {
		t.Errorf("record task id = %q, want %q", rec.TaskID, task.ID)
	}
}

func TestApplyCompletionLateResetsStreak(t *testing.T) {
	task := weeklyTask(model.ModeFixed, testNow.Add(-3*Day))
	task.Progress.Streak = 5
	task.Progress.BestStreak = 5

	got, _ := ApplyCompletion(task, CompletionInput{By: "m1"}, testNow, testRotator(), nil)

	if got.Progress.Streak != 0 {
		t.Errorf("streak = %d, want 0 after late completion", got.Progress.Streak)
	}
	if got.Progress.BestStreak != 5 {
		t.Errorf("best streak = %d, want 5 preserved", got.Progress.BestStreak)
	}
}

func TestApplyCompletionReschedulesFixed(t *testing.T) {
	due := testNow.Add(-10 * Day)
	task := weeklyTask(model.ModeFixed, due)

	got, _ := ApplyCompletion(task, CompletionInput{}, testNow, testRotator(), nil)

	if !got.Progress.DueAt.After(testNow) {
		t.Fatalf("due at = %v, not after completion time", got.Progress.DueAt)
	}
	if want := due.Add(14 * Day); !got.Progress.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", got.Progress.DueAt, want)
	}
}

func TestApplyCompletionOnceTerminal(t *testing.T) {
	due := testNow.Add(-Day)
	task := model.Task{
		ID:       "t1",
		Schedule: model.Schedule{Frequency: model.FreqOnce, Mode: model.ModeFixed},
		Progress: model.Progress{DueAt: due},
	}

	got, _ := ApplyCompletion(task, CompletionInput{By: "m1"}, testNow, testRotator(), nil)

	if !got.Progress.Completed {
		t.Error("one-time task must end completed")
	}
	if !got.Progress.DueAt.Equal(due) {
		t.Errorf("due at = %v, want unchanged %v", got.Progress.DueAt, due)
	}
	if got.Progress.Streak != 0 {
		t.Errorf("streak = %d, want 0 for one-time task", got.Progress.Streak)
	}
}

func TestApplyCompletionRoomGating(t *testing.T) {
	task := weeklyTask(model.ModeFixed, testNow.Add(2*time.Hour))
	task.Rooms = []string{"kitchen", "bathroom", "hall"}
	task.Progress.Streak = 2

	// First call completes one room: no streak/reschedule mutation.
	partial, _ := ApplyCompletion(task, CompletionInput{By: "m1", Rooms: []string{"kitchen"}}, testNow, testRotator(), nil)

	if got, want := partial.Progress.CompletedRooms, []string{"kitchen"}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("completed rooms = %v, want %v", got, want)
	}
	if partial.Progress.Streak != 2 {
		t.Errorf("streak = %d, want 2 untouched after partial completion", partial.Progress.Streak)
	}
	if !partial.Progress.DueAt.Equal(task.Progress.DueAt) {
		t.Errorf("due at = %v, want unchanged %v", partial.Progress.DueAt, task.Progress.DueAt)
	}
	if partial.Progress.TotalCompletions != 1 {
		t.Errorf("total completions = %d, want 1", partial.Progress.TotalCompletions)
	}

	// Second call completes the rest: cycle closes, rooms reset.
	later := testNow.Add(30 * time.Minute)
	full, _ := ApplyCompletion(partial, CompletionInput{By: "m1", Rooms: []string{"bathroom", "hall"}}, later, testRotator(), nil)

	if full.Progress.Streak != 3 {
		t.Errorf("streak = %d, want 3 after full completion", full.Progress.Streak)
	}
	if len(full.Progress.CompletedRooms) != 0 {
		t.Errorf("completed rooms = %v, want reset for new cycle", full.Progress.CompletedRooms)
	}
	if !full.Progress.DueAt.After(later) {
		t.Errorf("due at = %v, want rescheduled past %v", full.Progress.DueAt, later)
	}
	if full.Progress.TotalCompletions != 3 {
		t.Errorf("total completions = %d, want 3 (one per room)", full.Progress.TotalCompletions)
	}
}

func TestApplyCompletionRunningAverage(t *testing.T) {
	task := weeklyTask(model.ModeAfterCompletion, testNow.Add(time.Hour))
	task.EstimatedMinutes = 30

	// First completion: estimate seeds the average, single sample wins.
	first, _ := ApplyCompletion(task, CompletionInput{ActualMinutes: 40}, testNow, testRotator(), nil)
	if first.Progress.AverageMinutes != 40 {
		t.Errorf("average = %v, want 40 after first completion", first.Progress.AverageMinutes)
	}

	// Second completion: running average over both samples.
	second, _ := ApplyCompletion(first, CompletionInput{ActualMinutes: 50}, testNow.Add(Day), testRotator(), nil)
	if second.Progress.AverageMinutes != 45 {
		t.Errorf("average = %v, want 45", second.Progress.AverageMinutes)
	}
}

func TestApplyCompletionUntrackedTaskSkipsAverage(t *testing.T) {
	task := weeklyTask(model.ModeAfterCompletion, testNow.Add(time.Hour))

	got, _ := ApplyCompletion(task, CompletionInput{ActualMinutes: 25}, testNow, testRotator(), nil)
	if got.Progress.AverageMinutes != 0 {
		t.Errorf("average = %v, want 0 for untracked task", got.Progress.AverageMinutes)
	}
}

func TestApplyCompletionDoesNotMutateInput(t *testing.T) {
	task := weeklyTask(model.ModeFixed, testNow.Add(-Day))
	task.Progress.Streak = 7

	ApplyCompletion(task, CompletionInput{By: "m1"}, testNow, testRotator(), nil)

	if task.Progress.Streak != 7 {
		t.Errorf("input streak = %d, want 7 untouched", task.Progress.Streak)
	}
	if task.Progress.LastCompletedAt != nil {
		t.Error("input last-completed must stay nil")
	}
}

func TestApplySkipAdvancesAndResets(t *testing.T) {
	task := weeklyTask(model.ModeFixed, testNow)
	task.Progress.Streak = 4

	got, rec, err := ApplySkip(task, "m2", testNow)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if got.Progress.Streak != 0 {
		t.Errorf("streak = %d, want 0 after skip", got.Progress.Streak)
	}
	if want := testNow.Add(7 * Day); !got.Progress.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", got.Progress.DueAt, want)
	}
	if got.Progress.LastSkipped == nil || !got.Progress.LastSkipped.Equal(testNow) {
		t.Errorf("last skipped = %v, want %v", got.Progress.LastSkipped, testNow)
	}
	if got.Progress.LastCompletedAt != nil {
		t.Error("skip must not record a completion time")
	}
	if !rec.Skipped {
		t.Error("skip record must be marked skipped")
	}
}

func TestApplySkipOnceIsInvalid(t *testing.T) {
	task := model.Task{
		ID:       "t1",
		Schedule: model.Schedule{Frequency: model.FreqOnce, Mode: model.ModeFixed},
		Progress: model.Progress{DueAt: testNow.Add(Day)},
	}

	_, _, err := ApplySkip(task, "m1", testNow)
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("err = %v, want ErrInvalidOperation", err)
	}
}

// Skip then a late completion, per the weekly fixed-cadence walkthrough:
// skip at the due instant moves due to T+7d; completing 10 days later lands
// on T+21d (the first weekly multiple past the completion time) with the
// streak reset.
func TestSkipThenLateCompletion(t *testing.T) {
	start := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)
	task := weeklyTask(model.ModeFixed, start)
	task.Progress.Streak = 2

	skipped, _, err := ApplySkip(task, "m1", start)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if want := start.Add(7 * Day); !skipped.Progress.DueAt.Equal(want) {
		t.Fatalf("due after skip = %v, want %v", skipped.Progress.DueAt, want)
	}

	completedAt := start.Add(17 * Day) // 3 days past the skipped-to due date
	done, _ := ApplyCompletion(skipped, CompletionInput{By: "m1"}, completedAt, testRotator(), nil)

	if done.Progress.Streak != 0 {
		t.Errorf("streak = %d, want 0 for late completion", done.Progress.Streak)
	}
	if want := start.Add(21 * Day); !done.Progress.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", done.Progress.DueAt, want)
	}
}
