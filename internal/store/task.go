package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ewhitfield/tend/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// marshalList stores a string slice as a JSON array column. Nil slices
// round-trip as empty.
func marshalList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	return items
}

const taskCols = `id, household_id, title, description, frequency, schedule_mode, custom_days,
	due_at, completed, last_completed_at, last_completed_by, last_skipped,
	streak, best_streak, total_completions, average_minutes, completed_rooms, rotation_index,
	estimated_minutes, rooms, assigned_to, rotation, rotation_order, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var lastCompletedAt, lastSkipped sql.NullTime
	var completedRooms, rooms, rotationOrder string

	err := scanner.Scan(
		&t.ID, &t.HouseholdID, &t.Title, &t.Description,
		&t.Schedule.Frequency, &t.Schedule.Mode, &t.Schedule.CustomDays,
		&t.Progress.DueAt, &t.Progress.Completed, &lastCompletedAt, &t.Progress.LastCompletedBy, &lastSkipped,
		&t.Progress.Streak, &t.Progress.BestStreak, &t.Progress.TotalCompletions,
		&t.Progress.AverageMinutes, &completedRooms, &t.Progress.RotationIndex,
		&t.EstimatedMinutes, &rooms, &t.AssignedTo, &t.Rotation, &rotationOrder,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastCompletedAt.Valid {
		t.Progress.LastCompletedAt = &lastCompletedAt.Time
	}
	if lastSkipped.Valid {
		t.Progress.LastSkipped = &lastSkipped.Time
	}
	t.Progress.CompletedRooms = unmarshalList(completedRooms)
	t.Rooms = unmarshalList(rooms)
	t.RotationOrder = unmarshalList(rotationOrder)
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create inserts a task. The task must already be normalized (non-zero
// due date); an id is assigned if missing.
func (s *TaskStore) Create(t model.Task) (*model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, household_id, title, description, frequency, schedule_mode, custom_days,
			due_at, completed, last_completed_at, last_completed_by, last_skipped,
			streak, best_streak, total_completions, average_minutes, completed_rooms, rotation_index,
			estimated_minutes, rooms, assigned_to, rotation, rotation_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.HouseholdID, t.Title, t.Description,
		t.Schedule.Frequency, t.Schedule.Mode, t.Schedule.CustomDays,
		t.Progress.DueAt.UTC(), t.Progress.Completed,
		nullTime(t.Progress.LastCompletedAt), t.Progress.LastCompletedBy, nullTime(t.Progress.LastSkipped),
		t.Progress.Streak, t.Progress.BestStreak, t.Progress.TotalCompletions,
		t.Progress.AverageMinutes, marshalList(t.Progress.CompletedRooms), t.Progress.RotationIndex,
		t.EstimatedMinutes, marshalList(t.Rooms), t.AssignedTo, t.Rotation, marshalList(t.RotationOrder),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(t.ID)
}

func (s *TaskStore) GetByID(id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByHousehold(householdID string) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE household_id = ? ORDER BY due_at ASC, title ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ListDueBefore returns incomplete tasks across all households whose due
// date falls before the cutoff. Used by the reminder sweep.
func (s *TaskStore) ListDueBefore(cutoff time.Time) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE completed = 0 AND due_at < ? ORDER BY due_at ASC`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update persists the full task record.
func (s *TaskStore) Update(t model.Task) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, frequency = ?, schedule_mode = ?, custom_days = ?,
			due_at = ?, completed = ?, last_completed_at = ?, last_completed_by = ?, last_skipped = ?,
			streak = ?, best_streak = ?, total_completions = ?, average_minutes = ?,
			completed_rooms = ?, rotation_index = ?, estimated_minutes = ?, rooms = ?,
			assigned_to = ?, rotation = ?, rotation_order = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		t.Title, t.Description,
		t.Schedule.Frequency, t.Schedule.Mode, t.Schedule.CustomDays,
		t.Progress.DueAt.UTC(), t.Progress.Completed,
		nullTime(t.Progress.LastCompletedAt), t.Progress.LastCompletedBy, nullTime(t.Progress.LastSkipped),
		t.Progress.Streak, t.Progress.BestStreak, t.Progress.TotalCompletions, t.Progress.AverageMinutes,
		marshalList(t.Progress.CompletedRooms), t.Progress.RotationIndex, t.EstimatedMinutes, marshalList(t.Rooms),
		t.AssignedTo, t.Rotation, marshalList(t.RotationOrder),
		t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(t.ID)
}

func (s *TaskStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// --- Completion ledger ---

const completionCols = `id, task_id, household_id, completed_by, completed_at, skipped, note, rooms, actual_minutes`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.CompletionRecord, error) {
	var c model.CompletionRecord
	var rooms string

	err := scanner.Scan(&c.ID, &c.TaskID, &c.HouseholdID, &c.CompletedBy, &c.CompletedAt,
		&c.Skipped, &c.Note, &rooms, &c.ActualMinutes)
	if err != nil {
		return nil, err
	}
	c.Rooms = unmarshalList(rooms)
	return &c, nil
}

// AppendCompletion inserts a ledger record. Records are append-only; there
// is no update path.
func (s *TaskStore) AppendCompletion(c model.CompletionRecord) (*model.CompletionRecord, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	_, err := s.db.Exec(
		`INSERT INTO completions (id, task_id, household_id, completed_by, completed_at, skipped, note, rooms, actual_minutes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TaskID, c.HouseholdID, c.CompletedBy, c.CompletedAt.UTC(),
		c.Skipped, c.Note, marshalList(c.Rooms), c.ActualMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, c.ID)
	rec, err := scanCompletion(row)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return rec, nil
}

func (s *TaskStore) ListCompletionsByTask(taskID string) ([]model.CompletionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completions WHERE task_id = ? ORDER BY completed_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var records []model.CompletionRecord
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		records = append(records, *c)
	}
	return records, rows.Err()
}

func (s *TaskStore) ListCompletionsByDateRange(householdID string, start, end time.Time) ([]model.CompletionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completions
		 WHERE household_id = ? AND completed_at >= ? AND completed_at < ?
		 ORDER BY completed_at DESC`,
		householdID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by range: %w", err)
	}
	defer rows.Close()

	var records []model.CompletionRecord
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		records = append(records, *c)
	}
	return records, rows.Err()
}
