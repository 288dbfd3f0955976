package schedule

import (
	"testing"
	"time"

	"github.com/ewhitfield/tend/internal/model"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func weeklyTask(mode model.ScheduleMode, dueAt time.Time) model.Task {
	return model.Task{
		ID:          "t1",
		HouseholdID: "h1",
		Title:       "Vacuum",
		Schedule:    model.Schedule{Frequency: model.FreqWeekly, Mode: mode},
		Progress:    model.Progress{DueAt: dueAt},
	}
}

func TestNormalizeDefaultsMode(t *testing.T) {
	once := model.Task{Schedule: model.Schedule{Frequency: model.FreqOnce}}
	once = Normalize(once, testNow)
	if once.Schedule.Mode != model.ModeFixed {
		t.Errorf("once mode = %q, want %q", once.Schedule.Mode, model.ModeFixed)
	}

	weekly := model.Task{Schedule: model.Schedule{Frequency: model.FreqWeekly}}
	weekly = Normalize(weekly, testNow)
	if weekly.Schedule.Mode != model.ModeAfterCompletion {
		t.Errorf("weekly mode = %q, want %q", weekly.Schedule.Mode, model.ModeAfterCompletion)
	}
}

func TestNormalizeDerivesDueAt(t *testing.T) {
	// One-time task with an explicit due date
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	once := model.Task{Schedule: model.Schedule{Frequency: model.FreqOnce}, DueDate: &due}
	once = Normalize(once, testNow)
	if !once.Progress.DueAt.Equal(due) {
		t.Errorf("due at = %v, want %v", once.Progress.DueAt, due)
	}

	// Recurring task with an explicit next-due
	next := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	weekly := model.Task{Schedule: model.Schedule{Frequency: model.FreqWeekly}, NextDue: &next}
	weekly = Normalize(weekly, testNow)
	if !weekly.Progress.DueAt.Equal(next) {
		t.Errorf("due at = %v, want %v", weekly.Progress.DueAt, next)
	}

	// Recurring task with only a last completion: anchor + interval
	last := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	daily := model.Task{
		Schedule: model.Schedule{Frequency: model.FreqDaily},
		Progress: model.Progress{LastCompletedAt: &last},
	}
	daily = Normalize(daily, testNow)
	if want := last.Add(Day); !daily.Progress.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", daily.Progress.DueAt, want)
	}

	// Nothing to derive from: now + interval
	bare := model.Task{Schedule: model.Schedule{Frequency: model.FreqWeekly}}
	bare = Normalize(bare, testNow)
	if want := testNow.Add(7 * Day); !bare.Progress.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", bare.Progress.DueAt, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	tasks := []model.Task{
		{Schedule: model.Schedule{Frequency: model.FreqWeekly}},
		{Schedule: model.Schedule{Frequency: model.FreqCustom, CustomDays: -2}},
		weeklyTask(model.ModeFixed, testNow.Add(3*Day)),
		{Schedule: model.Schedule{Frequency: model.FreqOnce}},
	}

	for i, task := range tasks {
		once := Normalize(task, testNow)
		twice := Normalize(once, testNow.Add(time.Hour))
		if !once.Progress.DueAt.Equal(twice.Progress.DueAt) {
			t.Errorf("task[%d]: due at changed on second normalize: %v -> %v", i, once.Progress.DueAt, twice.Progress.DueAt)
		}
		if once.Schedule != twice.Schedule {
			t.Errorf("task[%d]: schedule changed on second normalize: %+v -> %+v", i, once.Schedule, twice.Schedule)
		}
	}
}

func TestNormalizeCoercesUnknownFrequency(t *testing.T) {
	task := model.Task{Schedule: model.Schedule{Frequency: model.Frequency("fortnightly")}}
	task = Normalize(task, testNow)

	if task.Schedule.Frequency != model.FreqWeekly {
		t.Errorf("frequency = %q, want %q", task.Schedule.Frequency, model.FreqWeekly)
	}
	if want := testNow.Add(7 * Day); !task.Progress.DueAt.Equal(want) {
		t.Errorf("due at = %v, want %v", task.Progress.DueAt, want)
	}
}

func TestNormalizeSubstitutesCustomDays(t *testing.T) {
	task := model.Task{Schedule: model.Schedule{Frequency: model.FreqCustom, CustomDays: -3}}
	task = Normalize(task, testNow)
	if task.Schedule.CustomDays != DefaultCustomDays {
		t.Errorf("custom days = %d, want %d", task.Schedule.CustomDays, DefaultCustomDays)
	}
}

func TestNextDueAtOnceUnchanged(t *testing.T) {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	task := model.Task{
		Schedule: model.Schedule{Frequency: model.FreqOnce, Mode: model.ModeFixed},
		Progress: model.Progress{DueAt: due},
	}
	if got := NextDueAt(task, testNow); !got.Equal(due) {
		t.Errorf("next due = %v, want unchanged %v", got, due)
	}
}

func TestNextDueAtAfterCompletion(t *testing.T) {
	// Anchors to the completion time no matter how overdue the task was.
	task := weeklyTask(model.ModeAfterCompletion, testNow.Add(-40*Day))
	got := NextDueAt(task, testNow)
	if want := testNow.Add(7 * Day); !got.Equal(want) {
		t.Errorf("next due = %v, want %v", got, want)
	}
}

func TestNextDueAtFixedSkipsMissedCycles(t *testing.T) {
	// Weekly task last due 40 days ago: the next due date must still land
	// strictly after the completion time, not 33 days in the past.
	due := testNow.Add(-40 * Day)
	task := weeklyTask(model.ModeFixed, due)

	got := NextDueAt(task, testNow)
	if !got.After(testNow) {
		t.Fatalf("next due = %v, not after completion time %v", got, testNow)
	}
	// 40/7 -> six whole cycles missed, the seventh lands 2 days out
	if want := due.Add(42 * Day); !got.Equal(want) {
		t.Errorf("next due = %v, want %v", got, want)
	}
}

func TestNextDueAtFixedSingleCycle(t *testing.T) {
	due := testNow.Add(2 * Day)
	task := weeklyTask(model.ModeFixed, due)
	// Completed early: the pending occurrence is already in the future.
	if got := NextDueAt(task, testNow); !got.Equal(due) {
		t.Errorf("next due = %v, want %v", got, due)
	}
}

func TestComputeStatusOverdue(t *testing.T) {
	task := weeklyTask(model.ModeFixed, testNow.Add(-3*Day))
	s := ComputeStatus(task, testNow)
	if !s.Overdue {
		t.Error("expected overdue")
	}
	if s.DaysOverdue != 3 {
		t.Errorf("days overdue = %d, want 3", s.DaysOverdue)
	}
	if s.DueSoon {
		t.Error("overdue task must not be due-soon")
	}
}

func TestComputeStatusDueToday(t *testing.T) {
	// Due later today
	task := weeklyTask(model.ModeFixed, testNow.Add(5*time.Hour))
	s := ComputeStatus(task, testNow)
	if !s.DueToday {
		t.Error("expected due-today")
	}
	if s.Overdue || s.DueSoon {
		t.Errorf("unexpected flags: %+v", s)
	}

	// Due earlier today: overdue and due-today are computed independently
	task = weeklyTask(model.ModeFixed, testNow.Add(-2*time.Hour))
	s = ComputeStatus(task, testNow)
	if !s.Overdue || !s.DueToday {
		t.Errorf("expected overdue and due-today, got %+v", s)
	}
}

func TestComputeStatusDueSoon(t *testing.T) {
	// Due tomorrow morning, within 24h
	task := weeklyTask(model.ModeFixed, testNow.Add(20*time.Hour))
	s := ComputeStatus(task, testNow)
	if !s.DueSoon {
		t.Errorf("expected due-soon, got %+v", s)
	}
	if s.DueToday || s.Overdue {
		t.Errorf("unexpected flags: %+v", s)
	}

	// Due in 3 days: nothing set
	task = weeklyTask(model.ModeFixed, testNow.Add(3*Day))
	s = ComputeStatus(task, testNow)
	if s.Overdue || s.DueToday || s.DueSoon {
		t.Errorf("expected no flags, got %+v", s)
	}
}

func TestComputeStatusCompletedTerminal(t *testing.T) {
	task := model.Task{
		Schedule: model.Schedule{Frequency: model.FreqOnce, Mode: model.ModeFixed},
		Progress: model.Progress{DueAt: testNow.Add(-5 * Day), Completed: true},
	}
	if s := ComputeStatus(task, testNow); s.Overdue || s.DueToday || s.DueSoon {
		t.Errorf("completed task should report no flags, got %+v", s)
	}
}

func TestCompletedForToday(t *testing.T) {
	morning := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	task := weeklyTask(model.ModeFixed, testNow)
	task.Progress.LastCompletedAt = &morning

	if !CompletedForToday(task, testNow) {
		t.Error("expected completed-for-today with a same-day completion")
	}
	if CompletedForToday(task, testNow.Add(24*time.Hour)) {
		t.Error("expected not completed-for-today on the next day")
	}

	task.Progress.LastCompletedAt = nil
	if CompletedForToday(task, testNow) {
		t.Error("expected not completed-for-today with no completion")
	}
}
